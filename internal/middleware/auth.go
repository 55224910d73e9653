package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// SessionCookie is the authorizer session cookie name
const SessionCookie = "cookie_session"

// Credentials reads the session cookie and bearer token from a request.
// Websocket clients cannot set headers, so a token query parameter is also accepted.
func Credentials(c *fiber.Ctx) services.Credentials {
	creds := services.Credentials{Cookie: c.Cookies(SessionCookie)}
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		creds.BearerToken = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	} else if token := c.Query("token"); token != "" {
		creds.BearerToken = token
	}
	return creds
}

// AuthAdmin validates that the request carries an admin session
func AuthAdmin(provider services.AuthProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, provider, "data.authorization.admin")
	}
}

func authorize(c *fiber.Ctx, provider services.AuthProvider, errorType string) error {
	session, err := provider.Authenticate(c.UserContext(), Credentials(c))
	if errors.Is(err, services.ErrNoCredentials) {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("No %s credentials found", provider.Name()),
			Type:    errorType,
		}
	}
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Set user data in context
	c.Locals("user", session.User)
	c.Locals("session", session)

	return c.Next()
}
