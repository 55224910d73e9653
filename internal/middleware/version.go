package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIVersion is the version served when a client does not ask for one
const APIVersion = "1.0.0"

// VersionMiddleware reads X-Api-Version, stores it in context and echoes the
// version actually served
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := strings.TrimPrefix(c.Get("X-Api-Version", APIVersion), "v")

		// Support version aliases
		switch version {
		case "1", "1.0":
			version = APIVersion
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}
