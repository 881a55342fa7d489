package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string                 `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindUniqueness:        http.StatusConflict,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindInconsistentState: http.StatusConflict,
	apperr.KindDependencyExists:  http.StatusConflict,
}

// StatusOf maps an error to its HTTP status and response body. Errors that
// are not domain or HTTP errors become an opaque 500.
func StatusOf(err error) (int, ErrorBody) {
	if e, ok := apperr.As(err); ok {
		status, known := kindStatus[e.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		return status, ErrorBody{Error: ErrorDetail{
			Kind:    string(e.Kind),
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, ErrorBody{Error: ErrorDetail{
			Kind:    "http",
			Code:    strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_"),
			Message: msg,
		}}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorBody{Error: ErrorDetail{
			Kind:    "timeout",
			Code:    "deadline_exceeded",
			Message: "request processing exceeded the allowed time",
		}}
	}

	return http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
		Kind:    "internal",
		Code:    "internal_error",
		Message: "internal server error",
	}}
}

// ErrorHandler renders errors returned by handlers. Unexpected errors are
// logged with the request id and never leak their message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := StatusOf(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}
