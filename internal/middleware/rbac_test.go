package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func appWithActor(actor *Actor, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if actor != nil {
			SetActor(c, *actor)
		}
		return c.Next()
	})
	app.Use(guard)
	app.Get("/staff", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsAuthorizedRoles(t *testing.T) {
	actor := Actor{UserID: 1, Roles: NewRoleSet("Bedel")}
	app := appWithActor(&actor, RequireStaff())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/staff", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRoleRejectsUnauthorizedRoles(t *testing.T) {
	studentID := uint(3)
	actor := Actor{UserID: 2, StudentID: &studentID, Roles: NewRoleSet(RoleStudent)}
	app := appWithActor(&actor, RequireStaff())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/staff", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleNeedsAuthentication(t *testing.T) {
	app := appWithActor(nil, RequireRole(RoleAdmin))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/staff", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestActorCanActFor(t *testing.T) {
	own := uint(9)
	student := Actor{UserID: 4, StudentID: &own, Roles: NewRoleSet(RoleStudent)}
	require.True(t, student.CanActFor(9))
	require.False(t, student.CanActFor(10))
	require.False(t, Actor{Roles: NewRoleSet(RoleStudent)}.CanActFor(9))

	secretary := Actor{UserID: 5, Roles: NewRoleSet(" SECRETARY ", "")}
	require.True(t, secretary.CanActFor(10))
	require.Equal(t, "secretary", secretary.Roles.Primary())
	require.Equal(t, []string{"secretary"}, secretary.Roles.List())
}
