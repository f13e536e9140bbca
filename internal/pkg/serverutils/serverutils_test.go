package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func whoami(ctx *fiber.Ctx) error {
	return ctx.SendString(UserID(ctx))
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/me", JwtMiddleware(testSecret), whoami)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + signed(t, jwt.MapClaims{"user_id": "u1"}, testSecret), 200, "u1"},
		{"missing", "", 401, ""},
		{"wrong secret", "Bearer " + signed(t, jwt.MapClaims{"user_id": "u1"}, "other"), 401, ""},
		{"no user claim", "Bearer " + signed(t, jwt.MapClaims{"sub": "x"}, testSecret), 401, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.body != "" {
				b, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tc.body, string(b))
			}
		})
	}
}

func TestOptionalJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/me", OptionalJwtMiddleware(testSecret), whoami)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/status", func(ctx *fiber.Ctx) error { return NewHTTPError(404, "Session not found") })
	app.Get("/fiber", func(ctx *fiber.Ctx) error { return fiber.NewError(409, "conflict") })
	app.Get("/plain", func(ctx *fiber.Ctx) error { return errors.New("db down") })
	app.Get("/validate", func(ctx *fiber.Ctx) error {
		return ValidateRequest(struct {
			Radius float64 `validate:"gt=0"`
		}{})
	})

	cases := map[string]int{"/status": 404, "/fiber": 409, "/plain": 500, "/validate": 400}
	for path, status := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)

		var body Response[any]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, status, body.Code)
	}
}
