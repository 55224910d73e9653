package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/theme"
)

// Handlers groups every route handler of the API
type Handlers struct {
	Forms   *FormsHandler
	Public  *PublicHandler
	Admin   *AdminHandler
	Live    *LiveHandler
	Session *SessionHandler
}

// New wires the handlers over one store, bucket and theme provider.
func New(s *store.Store, bucket objects.Bucket, themes *theme.Provider, auth services.AuthProvider) *Handlers {
	d := services.NewDispatcher(s, bucket)
	complaints := &services.ComplaintService{D: d}
	reports := &services.ReportService{D: d}

	return &Handlers{
		Forms: &FormsHandler{Dispatcher: d, Consents: &services.ConsentService{D: d}},
		Public: &PublicHandler{
			Complaints: complaints,
			Reports:    reports,
			Bucket:     bucket,
			Theme:      themes,
		},
		Admin: &AdminHandler{
			Store:      s,
			Dispatcher: d,
			Complaints: complaints,
			Reports:    reports,
			Theme:      themes,
		},
		Live:    &LiveHandler{Store: s, Theme: themes},
		Session: &SessionHandler{Auth: auth},
	}
}

// Register mounts the routes on api. adminAuth guards everything under /admin.
// Fixed admin routes are mounted before the :collection routes they would otherwise match.
func (h *Handlers) Register(api fiber.Router, adminAuth fiber.Handler) {
	api.Post("/forms/:collection", h.Forms.Submit)
	api.Get("/complaints", h.Public.GetComplaints)
	api.Get("/reports/:day", h.Public.GetReports)
	api.Get("/files/*", h.Public.GetFile)
	api.Get("/theme", h.Public.GetTheme)
	api.Get("/session", h.Session.GetSession)

	admin := api.Group("/admin", adminAuth)
	admin.Put("/complaints", h.Admin.ReplaceComplaints)
	admin.Patch("/complaints/:srNo", h.Admin.EditComplaint)
	admin.Post("/reports/:day", h.Admin.UploadReport)
	admin.Delete("/reports/:day/:id", h.Admin.DeleteReport)
	admin.Put("/theme", h.Admin.SetTheme)
	admin.Get("/live/:collection", h.Live.Upgrade, h.Live.Stream())
	admin.Get("/:collection/export", h.Admin.Export)
	admin.Get("/:collection", h.Admin.List)
	admin.Patch("/:collection/:id", h.Admin.Save)
	admin.Delete("/:collection/:id", h.Admin.Delete)
}
