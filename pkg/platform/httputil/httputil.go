// Package httputil centralizes JSON encoding and domain-error translation for
// HTTP handlers so every endpoint returns the same error envelope.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "medleave/pkg/domain-errors"
)

// statusForCode maps domain error codes onto HTTP statuses.
var statusForCode = map[dErrors.Code]int{
	dErrors.CodeValidation:    http.StatusBadRequest,
	dErrors.CodeBadRequest:    http.StatusBadRequest,
	dErrors.CodeInvalidInput:  http.StatusBadRequest,
	dErrors.CodeNotFound:      http.StatusNotFound,
	dErrors.CodeConflict:      http.StatusConflict,
	dErrors.CodeUnprocessable: http.StatusUnprocessableEntity,
	dErrors.CodeUnauthorized:  http.StatusUnauthorized,
	dErrors.CodeForbidden:     http.StatusForbidden,
	dErrors.CodeUnavailable:   http.StatusServiceUnavailable,
	dErrors.CodeTimeout:       http.StatusGatewayTimeout,
	dErrors.CodeInternal:      http.StatusInternalServerError,
}

// ToHTTPStatus translates a domain error code to an HTTP status. Unknown
// codes fall back to 500.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusForCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error       string `json:"error"`
	Reason      string `json:"reason,omitempty"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as a JSON error envelope. Internal errors omit the
// description so infrastructure details never leak to clients; business
// errors carry their message and reason token verbatim.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code) + errorSuffix(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Reason = de.Reason
			body.Description = de.Message
		}
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// errorSuffix keeps wire tokens stable: codes already read as snake_case
// except internal, which serializes as internal_error.
func errorSuffix(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "_error"
	}
	return ""
}

// DecodeAndPrepare decodes the JSON request body into T and writes a
// bad_request envelope on failure. Handlers bail out when ok is false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request body decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed request body"))
		var zero T
		return zero, false
	}
	return req, true
}
