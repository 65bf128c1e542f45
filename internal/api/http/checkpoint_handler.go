package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/service"
	"vehicle-checkpoint-backend/internal/workflow"
)

// CheckpointHandler exposes check sessions over HTTP.
type CheckpointHandler struct {
	svc            service.CheckpointService
	maxUploadBytes int64
}

func NewCheckpointHandler(svc service.CheckpointService, maxUploadBytes int64) *CheckpointHandler {
	return &CheckpointHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type startSessionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *CheckpointHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req startSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, r, err)
			return
		}
	}
	var loc *workflow.Coordinates
	if req.Latitude != nil && req.Longitude != nil {
		loc = &workflow.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	snap, err := h.svc.StartSession(r.Context(), operatorID(r), vars["bookingID"], domain.RecordType(vars["recordType"]), loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(snap))
}

func (h *CheckpointHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetSession(r.Context(), operatorID(r), mux.Vars(r)["id"])
	writeSession(w, r, snap, err, http.StatusOK)
}

type plateRequest struct {
	Registration string `json:"registration"`
}

func (h *CheckpointHandler) ScanPlate(w http.ResponseWriter, r *http.Request) {
	var req plateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.svc.ScanPlate(r.Context(), operatorID(r), mux.Vars(r)["id"], req.Registration)
	writeSession(w, r, snap, err, http.StatusOK)
}

type damageScanRequest struct {
	Findings int  `json:"findings"`
	Skipped  bool `json:"skipped"`
}

func (h *CheckpointHandler) DamageScan(w http.ResponseWriter, r *http.Request) {
	var req damageScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	var (
		snap workflow.Snapshot
		err  error
	)
	if req.Skipped {
		snap, err = h.svc.SkipDamageScan(r.Context(), operatorID(r), id)
	} else {
		snap, err = h.svc.CompleteDamageScan(r.Context(), operatorID(r), id, req.Findings)
	}
	writeSession(w, r, snap, err, http.StatusOK)
}

// CaptureDashboard takes the raw image as the request body. The response is sent once
// the estimate arrives or times out.
func (h *CheckpointHandler) CaptureDashboard(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		writeError(w, r, workflow.ErrImageRequired)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	snap, err := h.svc.CaptureDashboard(r.Context(), operatorID(r), mux.Vars(r)["id"], body, contentType)
	writeSession(w, r, snap, err, http.StatusOK)
}

type readingRequest struct {
	Field  string `json:"field"`
	Value  int    `json:"value"`
	Reason string `json:"reason"`
}

func (h *CheckpointHandler) OverrideReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	field := workflow.Field(req.Field)
	if field != workflow.FieldOdometer && field != workflow.FieldFuelPercent {
		writeError(w, r, errors.Join(errBadRequest, errors.New("field must be odometer or fuel_percent")))
		return
	}
	snap, err := h.svc.OverrideReading(r.Context(), operatorID(r), mux.Vars(r)["id"], field, req.Value, req.Reason)
	writeSession(w, r, snap, err, http.StatusOK)
}

type cleanlinessRequest struct {
	ExteriorClean *bool `json:"exterior_clean"`
	InteriorClean *bool `json:"interior_clean"`
}

func (h *CheckpointHandler) SetCleanliness(w http.ResponseWriter, r *http.Request) {
	var req cleanlinessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ExteriorClean == nil || req.InteriorClean == nil {
		writeError(w, r, workflow.ErrCleanlinessRequired)
		return
	}
	snap, err := h.svc.SetCleanliness(r.Context(), operatorID(r), mux.Vars(r)["id"], *req.ExteriorClean, *req.InteriorClean)
	writeSession(w, r, snap, err, http.StatusOK)
}

func (h *CheckpointHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Confirm(r.Context(), operatorID(r), mux.Vars(r)["id"])
	writeSession(w, r, snap, err, http.StatusOK)
}

type manualReadingsRequest struct {
	StartOdometer    int `json:"start_odometer"`
	StartFuelPercent int `json:"start_fuel_percent"`
}

func (h *CheckpointHandler) EnterManualReadings(w http.ResponseWriter, r *http.Request) {
	var req manualReadingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.svc.EnterManualReadings(r.Context(), operatorID(r), mux.Vars(r)["id"], req.StartOdometer, req.StartFuelPercent)
	writeSession(w, r, snap, err, http.StatusOK)
}

func (h *CheckpointHandler) AcceptSettlement(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AcceptSettlement(r.Context(), operatorID(r), mux.Vars(r)["id"])
	writeSession(w, r, snap, err, http.StatusOK)
}

func (h *CheckpointHandler) Restart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Restart(r.Context(), operatorID(r), mux.Vars(r)["id"])
	writeSession(w, r, snap, err, http.StatusOK)
}

func (h *CheckpointHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), operatorID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
