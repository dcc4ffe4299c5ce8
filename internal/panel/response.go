package panel

// Every error response has the same shape:
//
//	{"error": "validation_error", "message": "status must be a string"}
//
// so the page script can show Message without caring about the status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/teamsync/internal/apperror"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "validation_error")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sets headers and status before the body; headers changed after
// the first write are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an apperror category to an HTTP status. Errors without an
// *AppError in their chain become a generic 500 so internal details never
// reach the page.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrAuthRequired):
		status = http.StatusUnauthorized
		errorType = "auth_required"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	case errors.Is(err, apperror.ErrTimeout):
		status = http.StatusGatewayTimeout
		errorType = "timeout"
	case errors.Is(err, apperror.ErrRemote):
		status = http.StatusBadGateway
		errorType = "remote_error"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}
