package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Error is the wire shape of every failure response.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, message string) Error {
	return Error{Code: code, Message: message}
}

func ErrBadRequest(message string) Error {
	return Error{Code: fiber.StatusBadRequest, Message: message}
}

func ErrInternal(message string) Error {
	return Error{Code: fiber.StatusInternalServerError, Message: message}
}

// ErrorHandler converts handler errors into JSON error bodies. Unknown
// errors are logged and reported as a generic internal error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(Error{Code: fiberErr.Code, Message: fiberErr.Message})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(ErrInternal("Internal error"))
}
