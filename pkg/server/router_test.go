package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsci/fractal/internal/logger"
	"github.com/molsci/fractal/pkg/queue"
	"github.com/molsci/fractal/pkg/server/handlers"
)

func testRouter(t *testing.T, adapter queue.Adapter, allowRead bool) http.Handler {
	t.Helper()

	cfg := testConfig(t)
	cfg.Fractal.AllowRead = allowRead
	store := testStore(t, cfg)

	hctx := &handlers.Context{
		Store:      store,
		Log:        logger.With("component", "handlers"),
		Adapter:    adapter,
		ServerName: cfg.Fractal.Name,
		AllowRead:  allowRead,
		Security:   cfg.Fractal.Security,
		QueryLimit: cfg.Fractal.QueryLimit,
	}
	return newRouter(hctx, false)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestInformationEndpoint(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	rec, body := doJSON(t, h, http.MethodGet, "/v1/information", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fractal_test", body["name"])
	assert.EqualValues(t, 1000, body["query_limit"])
	assert.Equal(t, true, body["allow_read"])
	assert.Equal(t, "none", body["security"])
}

func TestMoleculeInsertAndQuery(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/molecule",
		`{"Hash":"deadbeef","Name":"water","Formula":"H2O"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "deadbeef", body["hash"])

	rec, body = doJSON(t, h, http.MethodGet, "/v1/molecule?hash=deadbeef", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["n_found"])

	rec, body = doJSON(t, h, http.MethodGet, "/v1/molecule?name=nothing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["n_found"])
}

func TestMoleculeInsertRequiresHash(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/molecule", `{"Name":"water"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadDisabled(t *testing.T) {
	h := testRouter(t, queue.None{}, false)

	rec, _ := doJSON(t, h, http.MethodGet, "/v1/molecule", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, h, http.MethodGet, "/v1/task", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTaskSubmissionWithoutAdapter(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/task", `{"spec":"{\"function\":\"energy\"}"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body["error"], "no compute adapter")
}

func TestTaskSubmissionAndCompletion(t *testing.T) {
	pool := queue.NewPool(1)
	defer pool.Shutdown(context.Background())

	h := testRouter(t, pool, true)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/task",
		`{"spec":"{\"function\":\"energy\"}","tag":"scan"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	id, ok := body["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	// The record flips to complete off the request path; poll for it.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, body = doJSON(t, h, http.MethodGet, "/v1/task?id="+id, "")
		require.Equal(t, http.StatusOK, rec.Code)

		data := body["data"].([]any)
		if len(data) == 1 {
			if data[0].(map[string]any)["Status"] == "complete" {
				return
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("task never reached complete")
}

func TestTaskSubmissionRequiresSpec(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/task", `{"tag":"scan"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	rec, body := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = doJSON(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsExposed(t *testing.T) {
	h := testRouter(t, queue.None{}, true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
