package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// WHY HELPERS?
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "authentication_error", "message": "invalid credentials"}
//
// The one extension: the zero-admins case adds "noAdmins": true so the
// back-office UI can route the operator to first-run setup instead of showing
// a dead-end credentials error.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ridwan/agency-site/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
// Having a struct ensures consistent JSON shape across all error responses.
type ErrorResponse struct {
	Error    string `json:"error"`              // Machine-readable error type (e.g., "authentication_error")
	Message  string `json:"message"`            // Human-readable description
	NoAdmins bool   `json:"noAdmins,omitempty"` // True only for the zero-admins admin-login case
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are
// sent. Any header changes after that are silently ignored. That's why the
// order is always: set headers → WriteHeader → Encode.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// This is where domain errors (from the service layer) get translated to
// HTTP. The service returns apperror.ErrAuthentication, apperror.ErrNoAdmins,
// etc.; this function maps those to 401, 403, 409, ...
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes. Different
// consumers of the service might use different protocols.
//
// errors.Is() UNWRAPPING:
// errors.Is(err, target) walks the entire error chain (via Unwrap()) to see
// if `target` appears anywhere, so a service-level fmt.Errorf("...: %w", ...)
// wrapper doesn't hide the sentinel.
func writeError(w http.ResponseWriter, err error) {
	// Try to extract our AppError for the human-readable message
	var appErr *apperror.AppError

	// errors.As() is like errors.Is() but extracts the error value.
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"
		noAdmins := false

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNoAdmins):
			// Still a 401 — the login did fail — but flagged so the UI can
			// offer the bootstrap flow.
			status = http.StatusUnauthorized
			errorType = "no_admins"
			noAdmins = true
		case errors.Is(err, apperror.ErrAuthentication):
			status = http.StatusUnauthorized // 401
			errorType = "authentication_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:    errorType,
			Message:  appErr.Message,
			NoAdmins: noAdmins,
		})
		return
	}

	// Unknown error — return a generic 500.
	// NEVER expose internal error details to the client: the raw message
	// might contain SQL fragments, file paths, or other sensitive info.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
