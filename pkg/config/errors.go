package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for the lifecycle manager's guard states. Commands map
// these to exit codes in one place.
var (
	// ErrNotInitialized means no persisted record exists at the base folder.
	// The operator must run `init` first.
	ErrNotInitialized = errors.New("no configuration found, run `fractal-server init` first")

	// ErrAlreadyInitialized means a persisted record exists and `init` was
	// invoked without --overwrite.
	ErrAlreadyInitialized = errors.New("configuration file already exists, " +
		"to overwrite use '--overwrite' or use `fractal-server config` to alter settings")

	// ErrConfirmationMismatch means the typed destructive confirmation did
	// not match the expected token. No data was touched.
	ErrConfirmationMismatch = errors.New("confirmation input does not match, exiting")
)

// ConfigurationError reports an invalid or missing configuration field.
// The operator must fix the input; no other operation state is affected.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: field %q %s", e.Field, e.Reason)
}
