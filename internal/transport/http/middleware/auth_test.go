package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/pkg/auth"
)

func newTestApp(tokens *auth.Manager) *fiber.App {
	app := fiber.New()
	app.Get("/protected", NewAuthMiddleware(tokens), func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.JSON(fiber.Map{"id": actor.ID, "role": actor.Role})
	})

	return app
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokens := auth.NewManager("test-secret", time.Hour)
	app := newTestApp(tokens)

	token, err := tokens.GenerateToken(7, string(domain.RoleManager))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tokens := auth.NewManager("test-secret", time.Hour)
	app := newTestApp(tokens)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "NotBearer abc"},
		{"garbage token", "Bearer not-a-token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuthMiddleware_UnknownRole(t *testing.T) {
	tokens := auth.NewManager("test-secret", time.Hour)
	app := newTestApp(tokens)

	token, err := tokens.GenerateToken(7, "superuser")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
