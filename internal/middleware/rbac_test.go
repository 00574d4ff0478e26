package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRoleTestApp(role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole("teacher", "admin"))
	app.Get("/staff", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		role   string
		status int
	}{
		{"admin allowed", "admin", fiber.StatusOK},
		{"teacher allowed", "teacher", fiber.StatusOK},
		{"case and whitespace normalized", "  Teacher ", fiber.StatusOK},
		{"student rejected", "student", fiber.StatusForbidden},
		{"missing role rejected", "", fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newRoleTestApp(tc.role)
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
