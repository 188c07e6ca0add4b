package queue

import "context"

// None is the adapter-absent variant: every submission fails fast with
// ErrNoAdapter so callers get a clear "no adapter configured" error
// instead of a hang.
type None struct{}

func (None) Submit(ctx context.Context, task Task) (*Handle, error) {
	return nil, ErrNoAdapter
}

func (None) Shutdown(ctx context.Context) error {
	return nil
}
