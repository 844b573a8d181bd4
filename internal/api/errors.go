package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

var statusByCode = map[string]int{
	schema.ErrCodeValidation:          http.StatusBadRequest,
	schema.ErrCodeContractViolation:   http.StatusBadRequest,
	schema.ErrCodeBehaviorUnavailable: http.StatusBadRequest,
	schema.ErrCodeUnauthorized:        http.StatusUnauthorized,
	schema.ErrCodeFeatureDenied:       http.StatusForbidden,
	schema.ErrCodeNotFound:            http.StatusNotFound,
	schema.ErrCodeConflict:            http.StatusConflict,
	schema.ErrCodeTimeout:             http.StatusServiceUnavailable,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var wfErr *schema.WorkflowError
	if errors.As(err, &wfErr) {
		if status, ok := statusByCode[wfErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	payload := errorPayload{Code: schema.ErrCodeExecution, Message: "internal error"}

	var (
		wfErr   *schema.WorkflowError
		httpErr *echo.HTTPError
	)
	switch {
	case errors.As(err, &wfErr):
		status = StatusFor(wfErr)
		payload = errorPayload{Code: wfErr.Code, Message: wfErr.Message, Details: wfErr.Details}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		payload.Code = http.StatusText(status)
		if msg, ok := httpErr.Message.(string); ok {
			payload.Message = msg
		} else {
			payload.Message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		logging.LogWith(c.Request().Context(), s.deps.Logger).
			Error("request error", "path", c.Path(), "error", err)
		if wfErr == nil {
			payload.Message = "internal error"
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorBody{Error: payload})
}
