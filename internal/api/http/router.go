package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker func(r *http.Request) error

// NewRouter registers every API route. Route names are the keys of the security config.
func NewRouter(cp *CheckpointHandler, st *SettlementHandler, img *ImageHandler, auth *AuthMiddleware, health HealthChecker) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("healthz")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Handler)

	api.HandleFunc("/bookings/{bookingID}/checks/{recordType}/sessions", cp.StartSession).Methods(http.MethodPost).Name("sessions.start")
	api.HandleFunc("/sessions/{id}", cp.GetSession).Methods(http.MethodGet).Name("sessions.get")
	api.HandleFunc("/sessions/{id}/plate", cp.ScanPlate).Methods(http.MethodPost).Name("sessions.plate")
	api.HandleFunc("/sessions/{id}/damage-scan", cp.DamageScan).Methods(http.MethodPost).Name("sessions.damage_scan")
	api.HandleFunc("/sessions/{id}/dashboard", cp.CaptureDashboard).Methods(http.MethodPost).Name("sessions.dashboard")
	api.HandleFunc("/sessions/{id}/readings", cp.OverrideReading).Methods(http.MethodPost).Name("sessions.readings")
	api.HandleFunc("/sessions/{id}/cleanliness", cp.SetCleanliness).Methods(http.MethodPost).Name("sessions.cleanliness")
	api.HandleFunc("/sessions/{id}/confirm", cp.Confirm).Methods(http.MethodPost).Name("sessions.confirm")
	api.HandleFunc("/sessions/{id}/manual-readings", cp.EnterManualReadings).Methods(http.MethodPost).Name("sessions.manual_readings")
	api.HandleFunc("/sessions/{id}/settlement/accept", cp.AcceptSettlement).Methods(http.MethodPost).Name("sessions.accept")
	api.HandleFunc("/sessions/{id}/restart", cp.Restart).Methods(http.MethodPost).Name("sessions.restart")
	api.HandleFunc("/sessions/{id}", cp.Close).Methods(http.MethodDelete).Name("sessions.close")

	api.HandleFunc("/settlements/preview", st.Preview).Methods(http.MethodPost).Name("settlements.preview")
	api.HandleFunc("/bookings/{bookingID}/settlement", st.GetBookingSettlement).Methods(http.MethodGet).Name("settlements.get")
	api.HandleFunc("/reviews", st.ListPendingReviews).Methods(http.MethodGet).Name("reviews.list")
	api.HandleFunc("/reviews/{recordID}/reviewed", st.MarkReviewed).Methods(http.MethodPost).Name("reviews.mark")

	api.HandleFunc("/images", img.GetImage).Methods(http.MethodGet).Name("images.get")

	return router
}
