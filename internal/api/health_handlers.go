package api

import (
	"net/http"
)

type healthStatus struct {
	Storage  string `json:"storage"`
	Sessions string `json:"sessions"`
}

// Healthz reports readiness of the datastore and the session backend.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := healthStatus{Storage: "ok", Sessions: "ok"}
	healthy := true
	if err := h.Store.Ping(r.Context()); err != nil {
		status.Storage = err.Error()
		healthy = false
	}
	if err := h.sessionManager().Ping(r.Context()); err != nil {
		status.Sessions = err.Error()
		healthy = false
	}

	if !healthy {
		writeError(w, http.StatusServiceUnavailable, "service degraded")
		return
	}
	writeSuccess(w, http.StatusOK, status, "ok")
}
