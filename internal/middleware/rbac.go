package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ipes/ipes-go-api/internal/utils"
)

// RequireRole ensures that the authenticated actor holds at least one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := NewRoleSet(roles...).List()

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !actor.Roles.Has(allowed...) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

// RequireStaff admits administrators, bedeles and secretaries.
func RequireStaff() fiber.Handler {
	return RequireRole(StaffRoles...)
}
