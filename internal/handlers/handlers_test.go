package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/database"
	"github.com/localnerve/jam-build-collectionsdb/internal/middleware"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/theme"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/localnerve/jam-build-collectionsdb/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const adminToken = "secret"

type tokenProvider struct{}

func (tokenProvider) Name() string { return "test" }

func (tokenProvider) Authenticate(ctx context.Context, creds services.Credentials) (*services.Session, error) {
	if creds.BearerToken == "" && creds.Cookie == "" {
		return nil, services.ErrNoCredentials
	}
	if creds.BearerToken != adminToken && creds.Cookie != adminToken {
		return nil, errors.New("invalid token")
	}
	return &services.Session{User: map[string]any{"email": "admin@example.com"}, IsAdmin: true}, nil
}

// flakyBackend wraps a backend whose reads can be made to fail.
type flakyBackend struct {
	store.Backend

	mu       sync.Mutex
	failList bool
}

func (b *flakyBackend) setFailList(fail bool) {
	b.mu.Lock()
	b.failList = fail
	b.mu.Unlock()
}

func (b *flakyBackend) List(ctx context.Context, path string) ([]store.Record, error) {
	b.mu.Lock()
	fail := b.failList
	b.mu.Unlock()
	if fail {
		return nil, errors.New("backend offline")
	}
	return b.Backend.List(ctx, path)
}

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	backend *flakyBackend
	store   *store.Store
	bucket  objects.Bucket
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	backend := &flakyBackend{Backend: store.NewSQLBackend(db)}
	s := store.New(backend)
	bucket := objects.NewSQLBucket(db, "http://localhost:3000")
	noon := func() time.Time { return time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC) }
	themes := theme.NewProvider("classic", noon)

	h := New(s, bucket, themes, tokenProvider{})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Register(app.Group("/api"), middleware.AuthAdmin(tokenProvider{}))
	app.Use(NotFound)

	return &testEnv{app: app, db: db, backend: backend, store: s, bucket: bucket}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string, admin bool) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (e *testEnv) doJSON(t *testing.T, method, target string, body any, admin bool) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	return e.do(t, method, target, r, fiber.MIMEApplicationJSON, admin)
}

func homeForm(name string) map[string]any {
	return map[string]any{"name": name, "phone": "9998887776", "city": "Indore", "experience": "Beginner"}
}

func TestSubmitFormThenList(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "POST", "/api/forms/homeFormSubmissions", homeForm("Amit Gupta"), false)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["id"])
	notification := body["notification"].(map[string]any)
	assert.Equal(t, "success", notification["level"])

	resp, body = env.doJSON(t, "GET", "/api/admin/homeFormSubmissions?q=GUPTA", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["matched"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	rec := rows[0].(map[string]any)["record"].(map[string]any)
	assert.Equal(t, "Amit Gupta", rec["name"])
	assert.NotEmpty(t, rec["timestamp"])
}

func TestSubmitValidationErrors(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "POST", "/api/forms/homeFormSubmissions", homeForm("A"), false)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["errors"], "name")
	assert.Equal(t, "A", body["fields"].(map[string]any)["name"])

	snap, err := env.store.Snapshot(context.Background(), store.PathHomeForm)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
}

func TestSubmitUnknownOrPrivateForm(t *testing.T) {
	env := setupTestApp(t)
	for _, name := range []string{"nope", "reports", "complaintTableData"} {
		resp, _ := env.doJSON(t, "POST", "/api/forms/"+name, map[string]any{}, false)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, name)
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	env := setupTestApp(t)
	resp, body := env.doJSON(t, "GET", "/api/admin/homeFormSubmissions", nil, false)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "data.authorization.admin", body["type"])
}

func TestDeleteNeedsConfirmationAndToleratesRepeat(t *testing.T) {
	env := setupTestApp(t)
	_, body := env.doJSON(t, "POST", "/api/forms/homeFormSubmissions", homeForm("Amit Gupta"), false)
	id := body["id"].(string)
	target := "/api/admin/homeFormSubmissions/" + id

	resp, body := env.doJSON(t, "DELETE", target, nil, true)
	assert.Equal(t, fiber.StatusPreconditionRequired, resp.StatusCode)
	assert.Equal(t, "info", body["notification"].(map[string]any)["level"])

	resp, body = env.doJSON(t, "DELETE", target+"?confirm=true", nil, true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["notification"].(map[string]any)["level"])

	resp, body = env.doJSON(t, "DELETE", target+"?confirm=true", nil, true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "info", body["notification"].(map[string]any)["level"])
}

func TestSaveKeepsTimestamp(t *testing.T) {
	env := setupTestApp(t)
	_, body := env.doJSON(t, "POST", "/api/forms/homeFormSubmissions", homeForm("Amit Gupta"), false)
	id := body["id"].(string)

	before, err := env.store.Snapshot(context.Background(), store.PathHomeForm)
	require.NoError(t, err)
	stamp := before.Records[0].Fields[store.FieldTimestamp]

	resp, _ := env.doJSON(t, "PATCH", "/api/admin/homeFormSubmissions/"+id, map[string]any{"city": "Pune", "timestamp": 1}, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	after, err := env.store.Snapshot(context.Background(), store.PathHomeForm)
	require.NoError(t, err)
	assert.Equal(t, "Pune", after.Records[0].Fields["city"])
	assert.Equal(t, stamp, after.Records[0].Fields[store.FieldTimestamp])
}

func TestExportCSV(t *testing.T) {
	env := setupTestApp(t)
	for _, name := range []string{"Amit Gupta", "Neha Sharma", "Ravi Kumar"} {
		resp, _ := env.doJSON(t, "POST", "/api/forms/homeFormSubmissions", homeForm(name), false)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/api/admin/homeFormSubmissions/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".csv")

	raw, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Name,"))

	req = httptest.NewRequest("GET", "/api/admin/homeFormSubmissions/export?format=pdf", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestComplaintTableRoutes(t *testing.T) {
	env := setupTestApp(t)
	require.NoError(t, env.store.ReplaceAll(context.Background(), store.PathComplaintTable, services.DefaultComplaintRows()))

	resp, body := env.doJSON(t, "GET", "/api/complaints", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rows := body["rows"].([]any)
	require.Len(t, rows, 4)
	assert.Equal(t, services.ComplaintSentinel, rows[3].(map[string]any)["srNo"])

	sentinel := "/api/admin/complaintTableData/" + url.PathEscape(services.ComplaintSentinel)
	resp, _ = env.doJSON(t, "DELETE", sentinel+"?confirm=true", nil, true)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = env.doJSON(t, "PATCH", "/api/admin/complaints/"+url.PathEscape(services.ComplaintSentinel), map[string]any{"received": 12}, true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = env.doJSON(t, "PATCH", "/api/admin/complaints/1", map[string]any{"srNo": "9"}, true)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["errors"], "srNo")

	resp, _ = env.doJSON(t, "PUT", "/api/admin/complaints", map[string]any{"rows": []map[string]any{{"srNo": "1", "source": "Direct"}}}, true)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// consentBody builds a multipart consent form. files overrides the content of
// named attachments, the rest are small PNGs.
func consentBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"clientName":    "Kiran Rao",
		"email":         "kiran@example.com",
		"phone":         "8123456789",
		"panNumber":     "ABCDE1234F",
		"aadhaarNumber": "123412341234",
		"address":       "12 MG Road, Bengaluru",
		"servicePlan":   "Equity",
		"consent":       "true",
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range []string{"panCard", "aadhaarCard", "signature"} {
		data, ok := files[name]
		if !ok {
			data = pngBytes
		}
		part, err := w.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestConsentMultipartAndFileDownload(t *testing.T) {
	env := setupTestApp(t)
	buf, contentType := consentBody(t, nil)

	resp, body := env.do(t, "POST", "/api/forms/clientServiceConsentForms", buf, contentType, false)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	snap, err := env.store.Snapshot(context.Background(), store.PathConsentForms)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	refs := store.FileRefs(snap.Records[0].Fields)
	require.Len(t, refs, 3)

	ref := refs["signature"]
	resp, err = env.app.Test(httptest.NewRequest("GET", "/api/files/"+ref.StoragePath, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, pngBytes, raw)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "inline")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "sandbox", resp.Header.Get("Content-Security-Policy"))

	resp, err = env.app.Test(httptest.NewRequest("GET", "/api/files/client-consents/none/x.png", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestConsentRequiresMultipart(t *testing.T) {
	env := setupTestApp(t)

	report, err := env.bucket.Upload(context.Background(), "reports/monday/1_r.pdf", []byte("%PDF-1.4\n"), "application/pdf")
	require.NoError(t, err)

	fields := map[string]any{
		"clientName":    "Kiran Rao",
		"email":         "kiran@example.com",
		"phone":         "8123456789",
		"panNumber":     "ABCDE1234F",
		"aadhaarNumber": "123412341234",
		"address":       "12 MG Road, Bengaluru",
		"servicePlan":   "Equity",
		"consent":       true,
		"panCard":       map[string]any{"url": report.URL, "storagePath": report.StoragePath, "fileName": "r.pdf"},
	}
	resp, _ := env.doJSON(t, "POST", "/api/forms/clientServiceConsentForms", fields, false)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	snap, err := env.store.Snapshot(context.Background(), store.PathConsentForms)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
}

func TestConsentRejectsHTMLUpload(t *testing.T) {
	env := setupTestApp(t)
	buf, contentType := consentBody(t, map[string][]byte{
		"signature": []byte("<script>fetch('/api/admin/homeFormSubmissions')</script>"),
	})

	resp, body := env.do(t, "POST", "/api/forms/clientServiceConsentForms", buf, contentType, false)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode, body)
	assert.Contains(t, body["errors"], "signature")
}

func TestFileOfUnsafeTypeIsDownloaded(t *testing.T) {
	env := setupTestApp(t)
	obj, err := env.bucket.Upload(context.Background(), "client-consents/old/signature-x.html", []byte("<script></script>"), "text/html")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/files/"+obj.StoragePath, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMEOctetStream, resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "sandbox", resp.Header.Get("Content-Security-Policy"))
}

func TestReportUploadAndList(t *testing.T) {
	env := setupTestApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Weekly outlook"))
	part, err := w.CreateFormFile("file", "outlook.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4\n"))
	require.NoError(t, w.Close())

	resp, body := env.do(t, "POST", "/api/admin/reports/Monday", &buf, w.FormDataContentType(), true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	resp, body = env.doJSON(t, "GET", "/api/reports/monday", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["reports"], 1)

	resp, body = env.doJSON(t, "GET", "/api/reports/tuesday", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["reports"], 0)

	resp, _ = env.doJSON(t, "GET", "/api/reports/sunday", nil, false)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestThemeRoutes(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "GET", "/api/theme", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "afternoon", body["period"])

	resp, _ = env.doJSON(t, "PUT", "/api/admin/theme", map[string]any{"name": "midnight"}, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.doJSON(t, "PUT", "/api/admin/theme", map[string]any{"name": "neon"}, true)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSession(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "GET", "/api/session", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isAdmin"])

	resp, body = env.doJSON(t, "GET", "/api/session", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isAdmin"])
}

func TestLiveRequiresUpgrade(t *testing.T) {
	env := setupTestApp(t)
	resp, _ := env.doJSON(t, "GET", "/api/admin/live/homeFormSubmissions", nil, true)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestApplyLiveRequest(t *testing.T) {
	state := view.NewState(store.FieldTimestamp, true)
	state.SetPage(3)

	filter := "gupta"
	applyRequest(state, liveRequest{Filter: &filter})
	q := state.Query()
	assert.Equal(t, "gupta", q.Filter)
	assert.Equal(t, 1, q.Page)

	applyRequest(state, liveRequest{Dir: "asc", Page: 2})
	q = state.Query()
	assert.Equal(t, store.FieldTimestamp, q.Sort)
	assert.False(t, q.Desc)
	assert.Equal(t, 2, q.Page)

	var req liveRequest
	require.NoError(t, json.Unmarshal([]byte(`{"sort":"name","dir":"desc","pageSize":"25"}`), &req))
	applyRequest(state, req)
	q = state.Query()
	assert.Equal(t, "name", q.Sort)
	assert.True(t, q.Desc)
	assert.Equal(t, 25, q.PageSize)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, fiber.StatusCreated},
		{&types.ValidationError{Fields: map[string]string{"a": "b"}}, fiber.StatusUnprocessableEntity},
		{types.ErrConfirmationRequired, fiber.StatusPreconditionRequired},
		{types.ErrProtectedRecord, fiber.StatusForbidden},
		{types.ErrUnknownCollection, fiber.StatusNotFound},
		{&types.ReadError{Path: "p", Err: errors.New("down")}, fiber.StatusServiceUnavailable},
		{&types.WriteError{Op: "delete", Path: "p", ID: "1", Err: types.ErrNotFound}, fiber.StatusNotFound},
		{&types.WriteError{Op: "create", Path: "p", Err: errors.New("down")}, fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err, fiber.StatusCreated), "%v", tt.err)
	}
}
