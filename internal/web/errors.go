package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusFor(err))
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error is logged with the request ID for correlation
//  5. User message is rendered as JSON, an HTMX fragment or plain text

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/wardrobe/internal/core"
	"github.com/JonMunkholm/wardrobe/internal/logging"
	"github.com/JonMunkholm/wardrobe/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Action  string       `json:"action,omitempty"`
	Code    string       `json:"code"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError names one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondError logs the technical error and writes a user-facing one in the
// format the client asked for.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"code", userMsg.Code,
		"error", err.Error(),
	)
	switch {
	case statusCode >= http.StatusInternalServerError && !core.IsUserFacing(err):
		logger.Error("unexpected request error")
	case statusCode >= http.StatusInternalServerError:
		logger.Error("request error")
	default:
		logger.Warn("request rejected")
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		writeJSON(w, r, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
			Fields:  fieldErrors(err),
		})
	default:
		http.Error(w, core.FormatUserError(err), statusCode)
	}
}

// statusFor picks the HTTP status for an error from the core package.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidRequest),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrCSVUnreadable),
		errors.Is(err, core.ErrNoValidRows),
		errors.Is(err, core.ErrInvalidJSONFile),
		errors.Is(err, core.ErrUnknownField),
		errors.Is(err, core.ErrRequiredFields),
		errors.Is(err, core.ErrInvalidCategory):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// fieldErrors flattens form validation failures for the JSON response.
func fieldErrors(err error) []FieldError {
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, len(verrs))
	for i, v := range verrs {
		out[i] = FieldError{Field: v.Field, Message: v.Message}
	}
	return out
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
