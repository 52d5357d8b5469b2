package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/opencodehub/opencodehub/internal/services"
)

// errorResponse — тело ответа для 400/403/409: {"error": ..., "field_errors": {...}}.
type errorResponse struct {
	Error       string              `json:"error"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

// notFoundResponse — тело ответа 404.
type notFoundResponse struct {
	Detail string `json:"detail"`
}

// writeJSON сериализует v в тело ответа с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования JSON-ответа: %v", err)
	}
}

// writeError отдает {"error": message} с указанным статусом.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeValidationError отдает 400 с детализацией по полям.
func writeValidationError(w http.ResponseWriter, fieldErrors map[string][]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:       "validation failed",
		FieldErrors: fieldErrors,
	})
}

// writeNotFound отдает стандартное тело 404.
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, notFoundResponse{Detail: "Not found."})
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// permissionMessage — текст для 403 конкретного эндпоинта.
func writeServiceError(w http.ResponseWriter, err error, permissionMessage string) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeValidationError(w, validationErr.FieldErrors)
	case errors.Is(err, services.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, permissionMessage)
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrVersionNotFound),
		errors.Is(err, services.ErrShareNotFound):
		writeNotFound(w)
	case errors.Is(err, services.ErrLatestConflict):
		writeError(w, http.StatusConflict, "concurrent latest-version update, please retry")
	default:
		log.Printf("[Handlers] Внутренняя ошибка: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
