package lifecycle

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/server"
)

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func initSQLiteInstance(t *testing.T, port int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := sqliteConfig(dir)
	cfg.Fractal.Port = port

	adapter := &fakeAdapter{}
	m := newTestManager(t, adapter, "")
	require.NoError(t, Init(context.Background(), m, cfg, false))
	return cfg
}

func TestStartServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	cfg := initSQLiteInstance(t, port)

	m := newTestManager(t, &fakeAdapter{}, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, m, cfg) }()

	waitForServer(t, port)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestStartStopRepeatedCycles(t *testing.T) {
	port := freePort(t)
	cfg := initSQLiteInstance(t, port)

	// Each successful re-bind proves the previous cycle released the
	// listener; each clean return proves nothing was released twice.
	for cycle := 0; cycle < 3; cycle++ {
		m := newTestManager(t, &fakeAdapter{}, "")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- Start(ctx, m, cfg) }()

		waitForServer(t, port)

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err, "cycle %d did not shut down cleanly", cycle)
		case <-time.After(10 * time.Second):
			t.Fatalf("cycle %d: server did not stop", cycle)
		}
	}
}

func TestStartBusyPortFailsWithoutTouchingDatastore(t *testing.T) {
	port := freePort(t)
	cfg := initSQLiteInstance(t, port)

	// Occupy the port so the bind fails.
	blocker, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	require.NoError(t, err)
	defer blocker.Close()

	m := newTestManager(t, &fakeAdapter{}, "")

	err = Start(context.Background(), m, cfg)
	var berr *server.BindError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, port, berr.Port)

	// The bind happens before the datastore opens, so the database
	// directory must still be empty.
	entries, err := os.ReadDir(cfg.DatabasePath())
	require.NoError(t, err)
	assert.Empty(t, entries, "datastore must be untouched after a bind failure")
}

func waitForServer(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("server did not start listening")
}
