package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const UserIDLocal = "user_id"

// JwtMiddleware rejects requests without a valid HMAC bearer token and stores
// the token's user_id claim in ctx.Locals.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userID, ok, msg := parseBearer(ctx, secret)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, msg))
		}
		ctx.Locals(UserIDLocal, userID)
		return ctx.Next()
	}
}

// OptionalJwtMiddleware lets anonymous requests through. A present but
// invalid token is still rejected.
func OptionalJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if ctx.Get("Authorization") == "" {
			return ctx.Next()
		}
		return JwtMiddleware(secret)(ctx)
	}
}

// UserID returns the identified user or "" for anonymous requests.
func UserID(ctx *fiber.Ctx) string {
	v, _ := ctx.Locals(UserIDLocal).(string)
	return v
}

func parseBearer(ctx *fiber.Ctx, secret string) (string, bool, string) {
	authHeader := ctx.Get("Authorization")
	tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || tokenStr == "" {
		return "", false, "Missing token"
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false, "Invalid token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false, "Invalid claims"
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", false, "Invalid claims"
	}
	return userID, true, ""
}
