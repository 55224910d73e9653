package forms

import (
	"errors"
	"testing"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

func mustLookup(t *testing.T, path string) Definition {
	t.Helper()
	def, ok := Lookup(path)
	if !ok {
		t.Fatalf("no definition for %s", path)
	}
	return def
}

func TestEveryCollectionIsDefined(t *testing.T) {
	paths := []string{
		store.PathHomeForm,
		store.PathContactEntries,
		store.PathPopupForms,
		store.PathConsentForms,
		store.PathComplaintTable,
		store.PathReports,
		store.PathInvestorFeedback,
	}
	for _, p := range paths {
		def := mustLookup(t, p)
		if len(def.Columns()) == 0 {
			t.Errorf("%s has no export columns", p)
		}
	}
	if len(All()) != len(paths) {
		t.Errorf("expected %d definitions, got %d", len(paths), len(All()))
	}
	if _, ok := Lookup("unknown"); ok {
		t.Error("unexpected definition for unknown path")
	}
}

func TestValidateHomeForm(t *testing.T) {
	def := mustLookup(t, store.PathHomeForm)

	err := Validate(def, map[string]any{
		"name":       "A",
		"phone":      "9998887776",
		"city":       "Indore",
		"experience": "Beginner",
	})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Fields["name"] != "Name must be at least 2 characters" {
		t.Errorf("unexpected name message %q", verr.Fields["name"])
	}
	if len(verr.Fields) != 1 {
		t.Errorf("expected only name to fail, got %v", verr.Fields)
	}

	err = Validate(def, map[string]any{
		"name":       "Asha",
		"phone":      "9998887776",
		"city":       "Indore",
		"experience": "Beginner",
	})
	if err != nil {
		t.Errorf("expected valid form, got %v", err)
	}
}

func TestValidatePatterns(t *testing.T) {
	def := mustLookup(t, store.PathConsentForms)
	valid := map[string]any{
		"clientName":    "Kiran Rao",
		"email":         "kiran@example.com",
		"phone":         "8123456789",
		"panNumber":     "ABCDE1234F",
		"aadhaarNumber": "123412341234",
		"address":       "12 MG Road, Bengaluru",
		"servicePlan":   "Equity",
		"consent":       true,
	}
	if err := Validate(def, valid); err != nil {
		t.Fatalf("expected valid consent form, got %v", err)
	}

	tests := []struct {
		field string
		value any
		want  string
	}{
		{"phone", "5123456789", "Phone must be a 10 digit mobile number"},
		{"phone", "81234", "Phone must be a 10 digit mobile number"},
		{"phone", float64(8123456789), "Phone must be a 10 digit mobile number"},
		{"panNumber", "abcde1234f", "PAN must look like ABCDE1234F"},
		{"aadhaarNumber", "1234 1234 1234", "Aadhaar must be a 12 digit number"},
		{"email", "not-an-email", "Email must be a valid email address"},
		{"consent", false, "Consent Given is required"},
		{"clientName", nil, "Client Name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fields := map[string]any{}
			for k, v := range valid {
				fields[k] = v
			}
			fields[tt.field] = tt.value

			var verr *types.ValidationError
			if !errors.As(Validate(def, fields), &verr) {
				t.Fatal("expected ValidationError")
			}
			if got := verr.Fields[tt.field]; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateOptionalFields(t *testing.T) {
	def := mustLookup(t, store.PathPopupForms)
	if err := Validate(def, map[string]any{"name": "Ravi", "phone": "7000000000"}); err != nil {
		t.Errorf("optional email should not be required, got %v", err)
	}
}

func TestValidateRating(t *testing.T) {
	def := mustLookup(t, store.PathInvestorFeedback)
	var verr *types.ValidationError
	err := Validate(def, map[string]any{"name": "Ravi", "rating": float64(9), "feedback": "Helpful team"})
	if !errors.As(err, &verr) || verr.Fields["rating"] != "Rating must be at most 5" {
		t.Errorf("unexpected result %v", err)
	}
}

func TestConsentColumns(t *testing.T) {
	def := mustLookup(t, store.PathConsentForms)
	cols := def.Columns()
	last := cols[len(cols)-1]
	if last.Key != store.FieldTimestamp {
		t.Errorf("expected timestamp column last, got %s", last.Key)
	}
	for _, f := range []string{"panCard", "aadhaarCard", "signature"} {
		if !def.FileField(f) {
			t.Errorf("%s should be a file field", f)
		}
	}
	if def.FileField("email") {
		t.Error("email is not a file field")
	}
}

func TestNormalizeDay(t *testing.T) {
	if d, ok := NormalizeDay(" Friday "); !ok || d != "friday" {
		t.Errorf("got %q %v", d, ok)
	}
	if _, ok := NormalizeDay("sunday"); ok {
		t.Error("sunday is not a report day")
	}
}

func TestResolve(t *testing.T) {
	for _, name := range []string{"complaintTableData", "complaintTableData%2Fdata", "complaintTableData/data"} {
		def, ok := Resolve(name)
		if !ok || def.Path != store.PathComplaintTable {
			t.Errorf("%s did not resolve to the complaint table", name)
		}
	}
	if def, ok := Resolve(store.PathReports); !ok || def.Path != store.PathReports {
		t.Error("reports did not resolve")
	}
	if _, ok := Resolve("data"); ok {
		t.Error("second path segment must not resolve")
	}
}
