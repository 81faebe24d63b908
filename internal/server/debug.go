package server

import (
	"encoding/json"
	"net/http"
	"pillarhunt-server/internal/engine"
)

// DebugHandler exposes the session internals read-only.
type DebugHandler struct {
	Session *engine.SessionService
}

func NewDebugHandler(s *engine.SessionService) *DebugHandler {
	return &DebugHandler{Session: s}
}

func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/session", h.handleSession)
	mux.HandleFunc("/debug/metrics", h.handleMetrics)
}

// /debug/session - roster, pillars, adversary and pending timers
func (h *DebugHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.Session.Debug(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, state)
}

// /debug/metrics - counters since startup
func (h *DebugHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Session.Metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	// Any origin, for a locally opened debug page
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if data == nil {
		w.Write([]byte("[]"))
		return
	}

	json.NewEncoder(w).Encode(data)
}
