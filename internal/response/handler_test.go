package response_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/Kyz7/kingsbuilder/internal/response"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, h fiber.Handler) (int, response.StandardResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/", h)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body response.StandardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		name   string
		h      fiber.Handler
		status int
		code   string
	}{
		{"BadRequest", func(c *fiber.Ctx) error { return response.BadRequest(c, "shop is required", nil) }, 400, response.CodeBadRequest},
		{"Unauthorized", func(c *fiber.Ctx) error { return response.Unauthorized(c, "Invalid token") }, 401, response.CodeUnauthorized},
		{"NotFound", func(c *fiber.Ctx) error { return response.NotFound(c, "Version") }, 404, response.CodeNotFound},
		{"BadGateway", func(c *fiber.Ctx) error { return response.BadGateway(c, "Shopify request failed", nil) }, 502, response.CodeUpstream},
		{"HistoryUnavailable", response.HistoryUnavailable, 503, response.CodeHistoryUnavailable},
		{"InternalError", func(c *fiber.Ctx) error { return response.InternalError(c, "boom") }, 500, response.CodeInternal},
	}

	for _, tc := range cases {
		t.Run("Success - "+tc.name, func(t *testing.T) {
			status, body := call(t, tc.h)
			assert.Equal(t, tc.status, status)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}

	t.Run("Success - Not found names the resource", func(t *testing.T) {
		_, body := call(t, func(c *fiber.Ctx) error { return response.NotFound(c, "Page") })
		require.NotNil(t, body.Error)
		assert.Equal(t, "Page not found", body.Error.Message)
	})
}

func TestSuccessHelpers(t *testing.T) {
	t.Run("Success - Meta carries the total", func(t *testing.T) {
		status, body := call(t, func(c *fiber.Ctx) error {
			return response.SuccessWithMeta(c, []int{1, 2}, &response.Meta{Total: 2}, "Pages retrieved")
		})
		assert.Equal(t, 200, status)
		assert.True(t, body.Success)
		assert.Nil(t, body.Error)
		require.NotNil(t, body.Meta)
		assert.Equal(t, int64(2), body.Meta.Total)
	})

	t.Run("Success - Created", func(t *testing.T) {
		status, body := call(t, func(c *fiber.Ctx) error {
			return response.Created(c, map[string]string{"id": "1"}, "Page created")
		})
		assert.Equal(t, 201, status)
		assert.True(t, body.Success)
		assert.Equal(t, "Page created", body.Message)
	})
}
