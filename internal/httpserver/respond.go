package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/apperr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, errStr string, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	Respond(w, status, ErrorResponse{Error: errStr, Message: message})
}

// RespondAppError maps an apperr.Kind to an HTTP status and writes the error
// response, per the management-plane error-propagation policy: NotFound→404,
// Unauthorized→401, BadInput→400, Conflict→409, everything else→500. The
// underlying cause is never included in the body.
func RespondAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code, message := http.StatusInternalServerError, "internal_error", "an internal error occurred"

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status, code, message = http.StatusNotFound, "not_found", "resource not found"
	case apperr.KindUnauthorized:
		status, code, message = http.StatusUnauthorized, "unauthorized", "authentication required"
	case apperr.KindBadInput:
		status, code, message = http.StatusBadRequest, "bad_request", "invalid request"
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			message = appErr.Msg
		}
	case apperr.KindConflict:
		status, code, message = http.StatusConflict, "conflict", "resource already exists"
	}

	if status == http.StatusInternalServerError {
		logger.Error("unhandled request error", "error", err)
	}

	RespondError(w, status, code, message)
}
