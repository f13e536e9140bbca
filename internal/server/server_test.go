package server

import (
	"io"
	"net/http/httptest"
	"testing"

	"studyhub-be/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_PanicBecomesErrorResponse(t *testing.T) {
	app := fiber.New()
	useMiddleware(app, &config.Config{App: config.AppConfig{CorsAllowedOrigins: "http://localhost:5173"}})
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("nil page")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "Internal server error")

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
