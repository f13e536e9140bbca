package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusError lets domain errors pick their HTTP status.
type StatusError interface {
	error
	StatusCode() int
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string   { return e.msg }
func (e *httpError) StatusCode() int { return e.status }

func NewHTTPError(status int, msg string) error {
	return &httpError{status: status, msg: msg}
}

// ErrorHandlerMiddleware turns errors returned by later handlers into the
// standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		msg := "Internal server error"

		var fe *fiber.Error
		var se StatusError
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			status, msg = fiber.StatusBadRequest, ve.Error()
		case errors.As(err, &se):
			status, msg = se.StatusCode(), se.Error()
		case errors.As(err, &fe):
			status, msg = fe.Code, fe.Message
		}
		return ctx.Status(status).JSON(ErrorResponse(status, msg))
	}
}
