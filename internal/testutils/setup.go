package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/history"
	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/Kyz7/kingsbuilder/internal/pages"
	"github.com/Kyz7/kingsbuilder/internal/server"
	"github.com/Kyz7/kingsbuilder/internal/shopify"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestShop   = "demo.myshopify.com"
	TestToken  = "shpat_test_token"
	TestSecret = "test_api_secret_minimum_32_characters_long"
)

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.PageVersionRecord{})
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

// SetupTestApp wires the real service and routes against a fake Shopify and
// a GORM history store on in-memory sqlite.
func SetupTestApp(t *testing.T) (*fiber.App, *FakeShopify) {
	return SetupTestAppWithStore(t, history.NewGormStore(TestDB(t)))
}

func SetupTestAppWithStore(t *testing.T, store history.Store) (*fiber.App, *FakeShopify) {
	fake := NewFakeShopify(t)

	client := shopify.NewClient(shopify.Options{
		APIVersion: "2024-10",
		Endpoint:   fake.URL(),
		Timeout:    5 * time.Second,
	})

	app := server.New(pages.NewService(client, store), server.Options{APISecret: TestSecret})
	return app, fake
}

// SessionToken signs a session token the way Shopify App Bridge does.
func SessionToken(t *testing.T, shop, user string) string {
	claims := jwt.MapClaims{
		"iss":  "https://" + shop + "/admin",
		"dest": "https://" + shop,
		"sub":  user,
		"exp":  time.Now().Add(time.Minute).Unix(),
		"nbf":  time.Now().Add(-time.Minute).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	require.NoError(t, err, "Failed to sign session token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	return MakeRequestWithHeaders(app, method, url, body, map[string]string{
		fiber.HeaderAuthorization: bearer(token),
	})
}

// MakeShopRequest identifies the caller with the shop domain and access
// token headers instead of a session token.
func MakeShopRequest(app *fiber.App, method, url string, body interface{}) (*httptest.ResponseRecorder, error) {
	return MakeRequestWithHeaders(app, method, url, body, map[string]string{
		"X-Shopify-Shop-Domain":    TestShop,
		shopify.AccessTokenHeader: TestToken,
	})
}

func MakeRequestWithHeaders(app *fiber.App, method, url string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(bytes.NewReader(resp.Body.Bytes())).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    *Meta        `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Total int64 `json:"total"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if assert.NotNil(t, result.Error, "Expected error object") {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}
