package server

import (
	"net/http"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine"
)

// AdminHandler lets the host's physics and perception side report what it
// observed. Only mounted when admin routes are enabled.
type AdminHandler struct {
	Session *engine.SessionService
}

func NewAdminHandler(s *engine.SessionService) *AdminHandler {
	return &AdminHandler{Session: s}
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/start", post(h.handleStart))
	mux.HandleFunc("/admin/adversary-contact", post(withParticipant(h.Session.ReportAdversaryContact)))
	mux.HandleFunc("/admin/monster-contact", post(withParticipant(h.Session.ReportMonsterContact)))
	mux.HandleFunc("/admin/target-sighted", post(withParticipant(h.Session.ReportTargetSighted)))
	mux.HandleFunc("/admin/target-evaded", post(queued(h.Session.ReportTargetEvaded)))
	mux.HandleFunc("/admin/adversary-arrived", post(queued(h.Session.ReportAdversaryArrived)))
}

// /admin/start - host override, still subject to the all-ready rule
func (h *AdminHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.StartGame(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"status": "rejected", "reason": domain.Reason(err)})
		return
	}
	writeJSON(w, map[string]string{"status": "started"})
}

func post(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// withParticipant reads ?id= and hands it to report.
func withParticipant(report func(domain.ParticipantID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := domain.ParseParticipantID(r.URL.Query().Get("id"))
		if err != nil || id == 0 {
			http.Error(w, "id must be a participant id", http.StatusBadRequest)
			return
		}
		report(id)
		writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func queued(report func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report()
		writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}
