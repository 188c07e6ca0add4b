package handlers

import "net/http"

// Health serves liveness and readiness probes.
type Health struct {
	ctx *Context
}

// NewHealth binds the health handler to the shared context.
func NewHealth(ctx *Context) *Health {
	return &Health{ctx: ctx}
}

// Liveness reports that the process is up.
func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports whether the datastore connection answers.
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.ctx.Store.Ping(r.Context()); err != nil {
		h.ctx.Log.Warn("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "datastore unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
