package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
	"vehicle-checkpoint-backend/internal/service"
	"vehicle-checkpoint-backend/internal/storage"
	"vehicle-checkpoint-backend/internal/workflow"
)

type errorResponse struct {
	Error   string       `json:"error"`
	Session *SessionView `json:"session,omitempty"`
}

// statusFor maps domain errors to HTTP status codes. Repository conflicts are checked
// before ErrSubmissionFailed because a failed submission wraps its cause.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch {
	case errors.Is(err, workflow.ErrPlateMismatch),
		errors.Is(err, workflow.ErrTransitionNotAllowed),
		errors.Is(err, workflow.ErrSettlementNotReady),
		errors.Is(err, workflow.ErrSessionClosed),
		errors.Is(err, service.ErrSessionInProgress),
		errors.Is(err, service.ErrBookingNotEligible),
		errors.Is(err, repository.ErrRecordExists),
		errors.Is(err, repository.ErrBookingState),
		errors.Is(err, repository.ErrStaleSettlement):
		return http.StatusConflict
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, workflow.ErrInvalidReading),
		errors.Is(err, workflow.ErrReasonRequired),
		errors.Is(err, workflow.ErrCleanlinessRequired),
		errors.Is(err, workflow.ErrImageRequired),
		errors.Is(err, workflow.ErrCaptureFailed),
		errors.Is(err, service.ErrInvalidRecordType),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeSession renders the snapshot together with the error, if any. Guard errors still
// carry the session so the client can show the notice.
func writeSession(w http.ResponseWriter, r *http.Request, snap workflow.Snapshot, err error, okStatus int) {
	if err == nil {
		writeJSON(w, okStatus, toSessionView(snap))
		return
	}
	if snap.SessionID == "" {
		writeError(w, r, err)
		return
	}
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Session request failed", "path", r.URL.Path, "session_id", snap.SessionID, "error", err)
		msg = "the check could not be saved, please retry"
	}
	view := toSessionView(snap)
	writeJSON(w, status, errorResponse{Error: msg, Session: &view})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
