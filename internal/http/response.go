package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/errs"
	applog "fintrack/internal/log"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidInput        = "invalid_input"
	CodeNotFound            = "not_found"
	CodeInsufficientBalance = "insufficient_balance"
	CodePayloadTooLarge     = "payload_too_large"
	CodeRateLimited         = "rate_limited"
	CodeUnavailable         = "unavailable"
	CodeInternal            = "internal_error"
)

type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Success: true, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// HandleError maps domain error kinds to status codes. Unclassified errors
// are logged and reported without their details.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errs.IsValidation(err):
		WriteError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errs.IsNotFound(err):
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errs.IsInsufficientBalance(err):
		WriteError(w, http.StatusUnprocessableEntity, CodeInsufficientBalance, err.Error())
	case errors.As(err, &tooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", applog.FieldError, err)
		WriteError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
