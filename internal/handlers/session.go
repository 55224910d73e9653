package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/middleware"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
)

// SessionHandler reports who is signed in
type SessionHandler struct {
	Auth services.AuthProvider
}

// GetSession handles GET /api/session
// @Summary Current session
// @Description The signed in user and whether the admin pages may be shown. Never fails for a visitor without a session.
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /session [get]
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.Auth.Authenticate(c.UserContext(), middleware.Credentials(c))
	if err != nil || session == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "isAdmin": false, "user": nil})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "isAdmin": session.IsAdmin, "user": session.User})
}
