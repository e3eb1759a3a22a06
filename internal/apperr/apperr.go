package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Error is the application error taxonomy. Services return *Error instead
// of raw database or HTTP-client errors; the fiber error handler translates
// it into a response at the boundary.
type Error struct {
	Status  int
	Code    string
	Message string
	// Detail carries the provider payload for gateway failures so it ends
	// up in the logs and the response for manual reconciliation.
	Detail string
}

func (e *Error) Error() string { return e.Message }

// Validation flags missing or malformed input.
func Validation(message string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Code: "validation_error", Message: message}
}

// Conflict flags a uniqueness violation such as a duplicate email.
func Conflict(message string) *Error {
	return &Error{Status: fiber.StatusConflict, Code: "conflict", Message: message}
}

// Auth flags a missing, invalid or expired session token.
func Auth(message string) *Error {
	return &Error{Status: fiber.StatusUnauthorized, Code: "auth_error", Message: message}
}

// Forbidden flags a role mismatch on a protected route.
func Forbidden(message string) *Error {
	return &Error{Status: fiber.StatusForbidden, Code: "forbidden", Message: message}
}

// NotFound flags an unknown user or payment reference.
func NotFound(message string) *Error {
	return &Error{Status: fiber.StatusNotFound, Code: "not_found", Message: message}
}

// Gateway flags a remote provider failure. detail is the provider's error
// payload, attached for diagnostics rather than swallowed.
func Gateway(message, detail string) *Error {
	return &Error{Status: fiber.StatusInternalServerError, Code: "gateway_error", Message: message, Detail: detail}
}

// Internal covers anything unanticipated.
func Internal(message string) *Error {
	return &Error{Status: fiber.StatusInternalServerError, Code: "internal_error", Message: message}
}

// ErrorHandler is installed as the fiber app's ErrorHandler. It maps the
// taxonomy onto HTTP responses and logs every 5xx.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Status >= fiber.StatusInternalServerError {
			logrus.WithFields(logrus.Fields{
				"code":   appErr.Code,
				"path":   c.Path(),
				"detail": appErr.Detail,
			}).Error(appErr.Message)
		}
		body := fiber.Map{"success": false, "message": appErr.Message}
		if appErr.Detail != "" {
			body["details"] = appErr.Detail
		}
		return c.Status(appErr.Status).JSON(body)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"success": false, "message": fiberErr.Message})
	}

	logrus.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "internal server error",
	})
}
