package datastore

import (
	"bytes"
	"context"
	"os/exec"
)

// commandRunner executes an external binary and returns its output streams.
// The indirection exists so tests can record invocations instead of needing
// a PostgreSQL toolchain on the machine.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}
