package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/molsci/fractal/pkg/queue"
	"github.com/molsci/fractal/pkg/storage"
)

// Task accepts computation submissions and reports their status. Execution
// is dispatched to the compute adapter so the request path never runs
// CPU-bound work.
type Task struct {
	ctx *Context
}

// NewTask binds the task handler to the shared context.
func NewTask(ctx *Context) *Task {
	return &Task{ctx: ctx}
}

type taskSubmission struct {
	Spec string `json:"spec"`
	Tag  string `json:"tag"`
}

func (h *Task) Post(w http.ResponseWriter, r *http.Request) {
	var sub taskSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task payload")
		return
	}
	if sub.Spec == "" {
		writeError(w, http.StatusBadRequest, "task spec is required")
		return
	}

	rec := storage.TaskRecord{
		Spec:       sub.Spec,
		Tag:        sub.Tag,
		Status:     storage.TaskWaiting,
		CreatedAt:  time.Now().UTC(),
		ModifiedAt: time.Now().UTC(),
	}

	handle, err := h.ctx.Adapter.Submit(r.Context(), queue.Task{
		Tag: sub.Tag,
		Fn:  h.runner(rec.Spec),
	})
	if err != nil {
		if errors.Is(err, queue.ErrNoAdapter) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.ctx.Log.Error("task submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "task submission failed")
		return
	}

	rec.ID = handle.ID
	if err := h.ctx.Store.DB().WithContext(r.Context()).Create(&rec).Error; err != nil {
		h.ctx.Log.Error("task record insert failed", "id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "task record insert failed")
		return
	}

	// Completion is recorded off the request path; the client polls by ID.
	// Tracked so shutdown waits for the status update before the datastore
	// closes.
	h.ctx.TrackBackground(func() { h.finalize(handle) })

	writeJSON(w, http.StatusAccepted, map[string]string{"id": rec.ID})
}

func (h *Task) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ctx.AllowRead {
		writeError(w, http.StatusForbidden, "read access is disabled on this server")
		return
	}

	q := h.ctx.Store.DB().WithContext(r.Context()).Limit(h.ctx.QueryLimit)
	if id := r.URL.Query().Get("id"); id != "" {
		q = q.Where("id = ?", id)
	}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		q = q.Where("tag = ?", tag)
	}

	var recs []storage.TaskRecord
	if err := q.Find(&recs).Error; err != nil {
		h.ctx.Log.Error("task query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "task query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": recs, "n_found": len(recs)})
}

// runner wraps the serialized spec for the compute adapter. The execution
// engine itself is pluggable; the bootstrap layer only moves the spec
// through the queue and records the outcome.
func (h *Task) runner(spec string) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		// Placeholder execution: echo the spec. A real engine plugs in here.
		return spec, nil
	}
}

// finalize waits for the task result and updates its record.
func (h *Task) finalize(handle *queue.Handle) {
	res := <-handle.Done

	status := storage.TaskComplete
	if res.Err != nil {
		status = storage.TaskError
	}

	err := h.ctx.Store.DB().
		Model(&storage.TaskRecord{}).
		Where("id = ?", handle.ID).
		Updates(map[string]any{"status": status, "modified_at": time.Now().UTC()}).Error
	if err != nil {
		h.ctx.Log.Error("task status update failed", "id", handle.ID, "error", err)
	}
}
