package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/utils"
)

func newTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})

	app.Get("/me", Auth(cfg), func(c *fiber.Ctx) error {
		id, _ := CurrentIdentity(c)
		return c.JSON(fiber.Map{"email": id.Email})
	})
	app.Get("/admin", Auth(cfg), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func signedToken(t *testing.T, secret string, roleID uint) string {
	t.Helper()

	user := &models.User{Email: "sara@example.com", RoleID: roleID}
	user.ID = uuid.New()
	token, err := utils.GenerateToken(secret, user, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAuthMissingToken(t *testing.T) {
	app := newTestApp(&config.Config{JWTSecret: "secret"})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthInvalidToken(t *testing.T) {
	app := newTestApp(&config.Config{JWTSecret: "secret"})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(TokenHeader, "bogus")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthWrongSecret(t *testing.T) {
	app := newTestApp(&config.Config{JWTSecret: "secret"})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(TokenHeader, signedToken(t, "other-secret", models.RoleDonor))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthValidToken(t *testing.T) {
	app := newTestApp(&config.Config{JWTSecret: "secret"})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(TokenHeader, signedToken(t, "secret", models.RoleDonor))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdminRejectsDonor(t *testing.T) {
	app := newTestApp(&config.Config{JWTSecret: "secret"})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(TokenHeader, signedToken(t, "secret", models.RoleDonor))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	app := newTestApp(&config.Config{JWTSecret: "secret"})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(TokenHeader, signedToken(t, "secret", models.RoleAdmin))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
