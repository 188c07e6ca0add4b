package handlers

import "net/http"

// Information reports server identity and the limits clients must respect.
type Information struct {
	ctx *Context
}

// NewInformation binds the information handler to the shared context.
func NewInformation(ctx *Context) *Information {
	return &Information{ctx: ctx}
}

func (h *Information) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        h.ctx.ServerName,
		"query_limit": h.ctx.QueryLimit,
		"allow_read":  h.ctx.AllowRead,
		"security":    h.ctx.Security,
	})
}
