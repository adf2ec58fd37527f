package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func newAuthApp(a *Auth) *fiber.App {
	app := fiber.New()
	app.Get("/me", a.Required(), func(c *fiber.Ctx) error {
		id, err := GetUserID(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user_id": id, "admin": IsAdmin(c)})
	})
	app.Get("/admin", a.Admin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func do(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequiredAuth(t *testing.T) {
	a := NewAuth(testSecret)
	app := newAuthApp(a)

	token, err := a.IssueToken(7, "alice", false, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, do(t, app, "/me", token))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", "garbage"))

	expired, err := a.IssueToken(7, "alice", false, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", expired))

	forged, err := NewAuth("another-secret-that-is-32-bytes-long!!").IssueToken(7, "alice", false, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", forged))
}

func TestTokenWithoutExpiryRejected(t *testing.T) {
	a := NewAuth(testSecret)
	app := newAuthApp(a)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", token))
}

func TestAdminAuth(t *testing.T) {
	a := NewAuth(testSecret)
	app := newAuthApp(a)

	user, err := a.IssueToken(7, "alice", false, time.Hour)
	require.NoError(t, err)
	admin, err := a.IssueToken(1, "root", true, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, do(t, app, "/admin", user))
	assert.Equal(t, fiber.StatusNoContent, do(t, app, "/admin", admin))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	app := fiber.New()
	app.Use(FiberRateLimitMiddleware(NewRateLimiter(0.001, 1)))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	assert.Equal(t, fiber.StatusOK, do(t, app, "/x", ""))
	assert.Equal(t, fiber.StatusTooManyRequests, do(t, app, "/x", ""))
	assert.Equal(t, fiber.StatusOK, do(t, app, "/health", ""))
	assert.Equal(t, fiber.StatusOK, do(t, app, "/health", ""))
}
