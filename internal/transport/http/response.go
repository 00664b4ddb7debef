package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"qa-live-service/internal/domain"
)

// envelope is the body of every REST response.
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   status < 400,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrParticipantInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoActiveQuestion),
		errors.Is(err, domain.ErrDuplicateResponse),
		errors.Is(err, domain.ErrStoreConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIncompleteQuestion),
		errors.Is(err, domain.ErrMisconfiguredQuestion),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrQuestionInactive):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
