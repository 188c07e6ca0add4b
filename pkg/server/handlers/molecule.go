package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/molsci/fractal/pkg/storage"
)

// Molecule serves the molecule resource: lookup by hash or name, insert of
// new structures.
type Molecule struct {
	ctx *Context
}

// NewMolecule binds the molecule handler to the shared context.
func NewMolecule(ctx *Context) *Molecule {
	return &Molecule{ctx: ctx}
}

func (h *Molecule) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ctx.AllowRead {
		writeError(w, http.StatusForbidden, "read access is disabled on this server")
		return
	}

	q := h.ctx.Store.DB().WithContext(r.Context()).Limit(h.ctx.QueryLimit)
	if hash := r.URL.Query().Get("hash"); hash != "" {
		q = q.Where("hash = ?", hash)
	}
	if name := r.URL.Query().Get("name"); name != "" {
		q = q.Where("name = ?", name)
	}

	var mols []storage.Molecule
	if err := q.Find(&mols).Error; err != nil {
		h.ctx.Log.Error("molecule query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "molecule query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": mols, "n_found": len(mols)})
}

func (h *Molecule) Post(w http.ResponseWriter, r *http.Request) {
	var mol storage.Molecule
	if err := json.NewDecoder(r.Body).Decode(&mol); err != nil {
		writeError(w, http.StatusBadRequest, "invalid molecule payload")
		return
	}
	if mol.Hash == "" {
		writeError(w, http.StatusBadRequest, "molecule hash is required")
		return
	}

	if err := h.ctx.Store.DB().WithContext(r.Context()).Create(&mol).Error; err != nil {
		h.ctx.Log.Error("molecule insert failed", "hash", mol.Hash, "error", err)
		writeError(w, http.StatusInternalServerError, "molecule insert failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": mol.ID, "hash": mol.Hash})
}
