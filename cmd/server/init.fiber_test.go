package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugvedkadu06/aggrigator/config"
	apirouter "github.com/rugvedkadu06/aggrigator/internal/api/router"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		CORS_Origins:      "*",
		RateLimit_Enabled: true,
		RateLimit_Max:     2,
		RateLimit_Window:  60,
		SyncTimeout:       60,
	}
}

func pingRoutes(v1 fiber.Router, r *apirouter.Router) error {
	v1.Get("/ping", func(c fiber.Ctx) error { return c.SendString("pong") })
	return nil
}

func TestInitFiberAppMiddlewareStack(t *testing.T) {
	app, err := InitFiberApp(testConfig(), pingRoutes)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/system/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestInitFiberAppRateLimit(t *testing.T) {
	app, err := InitFiberApp(testConfig(), pingRoutes)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMIT", body["code"])

	// Health checks are never limited.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/system/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInitFiberAppUnknownRoute(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit_Enabled = false
	app, err := InitFiberApp(cfg)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
