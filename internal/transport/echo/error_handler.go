package echo

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"clinic-authz/internal/policy"
	apperrors "clinic-authz/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	msgInternalServerError = "Internal server error"
	requestIDUnknown       = "unknown"
)

// NewHTTPErrorHandler handles all errors returned by handlers and middleware.
// It maps sentinel errors to HTTP status codes, hides internal errors from
// clients and logs every error with its request id.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := classify(err)

		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = requestIDUnknown
		}

		attrs := []any{
			"request_id", requestID,
			"status", code,
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err.Error(),
		}
		if code >= http.StatusInternalServerError {
			logger.Error("internal_server_error", attrs...)
		} else {
			logger.Warn("client_error", attrs...)
		}
		if code == http.StatusInternalServerError {
			// Don't expose internal errors to clients
			message = msgInternalServerError
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, getFailureResponse(code, errorCode(err), message, requestID))
		}
		if err != nil {
			logger.Error("failed to write error response", "request_id", requestID, "error", err)
		}
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	message := msgInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden), errors.Is(err, policy.ErrDenied):
		code, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrBadRequest):
		code, message = http.StatusBadRequest, "Bad request"
	case errors.Is(err, policy.ErrInvalidConfig):
		code, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrUnavailable):
		code, message = http.StatusServiceUnavailable, "Service unavailable"
	}

	// Use the message from AppError if it's a client error
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code < http.StatusInternalServerError {
		message = appErr.Message
	}

	return code, message
}

// errorCode exposes the AppError code so clients can tell a missing role
// assignment from a denied permission without parsing messages.
func errorCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
