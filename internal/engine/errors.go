package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"finance-backend/internal/query"
)

// StatusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was ready.
const StatusClientClosedRequest = 499

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func InvalidPayloadError(msg string) *AppError {
	return &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: msg}
}

// QueryError converts a query engine failure into its API form. The engine's
// kind becomes the code; every kind is a client error and Cancelled means the
// caller went away. Returns nil when err is not an engine error.
func QueryError(err error) *AppError {
	var qe *query.Error
	if !errors.As(err, &qe) {
		return nil
	}
	status := 400
	if qe.Kind == query.Cancelled {
		status = StatusClientClosedRequest
	}
	appErr := &AppError{Code: string(qe.Kind), Status: status, Message: qe.Message}
	if qe.Field != "" {
		appErr.Details = []ErrorDetail{{Field: qe.Field, Rule: string(qe.Kind), Message: qe.Message}}
	}
	return appErr
}

// ErrorHandler renders errors returned by handlers and middleware. AppErrors
// and engine errors keep their status; anything else is logged and hidden
// behind a 500.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return respondError(c, appErr)
		}
		if appErr := QueryError(err); appErr != nil {
			return respondError(c, appErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return respondError(c, NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message))
		}

		log.WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).WithError(err).Error("request failed")
		return respondError(c, NewAppError("INTERNAL_ERROR", fiber.StatusInternalServerError, "Internal server error"))
	}
}
