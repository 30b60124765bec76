package auth_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/auth"
	"github.com/Kyz7/kingsbuilder/internal/pages"
	"github.com/Kyz7/kingsbuilder/internal/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseSessionToken(t *testing.T) {
	t.Run("Success - Shop and user from claims", func(t *testing.T) {
		token := testutils.SessionToken(t, "demo.myshopify.com", "42")

		session, err := auth.ParseSessionToken(token, testutils.TestSecret)
		require.NoError(t, err)
		assert.Equal(t, "demo.myshopify.com", session.Shop)
		assert.Equal(t, "42", session.User)
	})

	t.Run("Error - Wrong secret", func(t *testing.T) {
		token := testutils.SessionToken(t, "demo.myshopify.com", "42")
		_, err := auth.ParseSessionToken(token, "another_secret")
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("Error - Expired", func(t *testing.T) {
		token := sign(t, testutils.TestSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"dest": "https://demo.myshopify.com",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		_, err := auth.ParseSessionToken(token, testutils.TestSecret)
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("Error - Missing expiry", func(t *testing.T) {
		token := sign(t, testutils.TestSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"dest": "https://demo.myshopify.com",
		})
		_, err := auth.ParseSessionToken(token, testutils.TestSecret)
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("Error - Other algorithm", func(t *testing.T) {
		token := sign(t, testutils.TestSecret, jwt.SigningMethodHS512, jwt.MapClaims{
			"dest": "https://demo.myshopify.com",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		_, err := auth.ParseSessionToken(token, testutils.TestSecret)
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("Error - Missing dest", func(t *testing.T) {
		token := sign(t, testutils.TestSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := auth.ParseSessionToken(token, testutils.TestSecret)
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("Error - No secret configured", func(t *testing.T) {
		token := testutils.SessionToken(t, "demo.myshopify.com", "42")
		_, err := auth.ParseSessionToken(token, "")
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})
}

func identityApp(t *testing.T) (*fiber.App, *pages.Identity) {
	t.Helper()

	seen := &pages.Identity{}
	app := fiber.New()
	app.Use(auth.Identity(testutils.TestSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		*seen = c.Locals(pages.IdentityLocal).(pages.Identity)
		return c.SendStatus(fiber.StatusOK)
	})
	return app, seen
}

func TestIdentityMiddleware(t *testing.T) {
	t.Run("Success - Session token wins over headers", func(t *testing.T) {
		app, seen := identityApp(t)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+testutils.SessionToken(t, "real.myshopify.com", "7"))
		req.Header.Set(auth.ShopDomainHeader, "spoofed.myshopify.com")
		req.Header.Set("X-Shopify-Access-Token", "shpat_1")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, pages.Identity{Shop: "real.myshopify.com", Token: "shpat_1", User: "7"}, *seen)
	})

	t.Run("Success - Headers", func(t *testing.T) {
		app, seen := identityApp(t)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(auth.ShopDomainHeader, " Demo.myshopify.com ")
		req.Header.Set("X-Shopify-Access-Token", "shpat_2")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "demo.myshopify.com", seen.Shop)
		assert.Equal(t, "shpat_2", seen.Token)
		assert.Empty(t, seen.User)
	})

	t.Run("Success - Query before cookies", func(t *testing.T) {
		app, seen := identityApp(t)

		req := httptest.NewRequest("GET", "/?shop=query.myshopify.com", nil)
		req.Header.Set("Cookie", "shop=cookie.myshopify.com; accessToken=shpat_3")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "query.myshopify.com", seen.Shop)
		assert.Equal(t, "shpat_3", seen.Token)
	})

	t.Run("Error - No shop anywhere", func(t *testing.T) {
		app, _ := identityApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("Error - Shop header is not a store domain", func(t *testing.T) {
		for _, shop := range []string{
			"169.254.169.254/latest/meta-data#",
			"169.254.169.254",
			"127.0.0.1",
			"[::1]",
			"evil.com@demo.myshopify.com",
			"demo.myshopify.com@evil.com",
			"demo.myshopify.com:8080",
			"demo.myshopify.com/admin",
			"demo.myshopify.com#",
			"demo.myshopify.com.evil.com",
			"-demo.myshopify.com",
			"myshopify.com",
		} {
			app, seen := identityApp(t)

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set(auth.ShopDomainHeader, shop)
			req.Header.Set("X-Shopify-Access-Token", "shpat_4")

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode, shop)
			assert.Empty(t, seen.Shop, shop)
		}
	})

	t.Run("Error - Session token for another host", func(t *testing.T) {
		app, seen := identityApp(t)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+testutils.SessionToken(t, "attacker.example.com", "7"))

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Empty(t, seen.Shop)
	})

	t.Run("Error - Invalid bearer", func(t *testing.T) {
		app, _ := identityApp(t)

		req := httptest.NewRequest("GET", "/?shop=demo.myshopify.com", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})
}
