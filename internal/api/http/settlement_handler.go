package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"vehicle-checkpoint-backend/internal/service"
)

type SettlementHandler struct {
	svc service.SettlementService
}

func NewSettlementHandler(svc service.SettlementService) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

type previewRequest struct {
	BookingID        string `json:"booking_id"`
	StartOdometer    int    `json:"start_odometer"`
	StartFuelPercent int    `json:"start_fuel_percent"`
	EndOdometer      int    `json:"end_odometer"`
	EndFuelPercent   int    `json:"end_fuel_percent"`
	ExteriorClean    bool   `json:"exterior_clean"`
	InteriorClean    bool   `json:"interior_clean"`
}

// Preview calculates a settlement from typed-in readings. Nothing is stored.
func (h *SettlementHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Preview(r.Context(), service.PreviewRequest{
		BookingID:        req.BookingID,
		StartOdometer:    req.StartOdometer,
		StartFuelPercent: req.StartFuelPercent,
		EndOdometer:      req.EndOdometer,
		EndFuelPercent:   req.EndFuelPercent,
		ExteriorClean:    req.ExteriorClean,
		InteriorClean:    req.InteriorClean,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownView(out))
}

func (h *SettlementHandler) GetBookingSettlement(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetBookingSettlement(r.Context(), mux.Vars(r)["bookingID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(s))
}

func (h *SettlementHandler) ListPendingReviews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	records, err := h.svc.ListPendingReviews(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": toReviewItems(records)})
}

func (h *SettlementHandler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkReviewed(r.Context(), mux.Vars(r)["recordID"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
