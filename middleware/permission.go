package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireRole returns a middleware that lets only callers with the given role through
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return unauthorized(c)
		}
		if p.Role != role {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}
		return c.Next()
	}
}
