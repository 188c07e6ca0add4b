// Package lifecycle orchestrates the init, start and config operations:
// configuration merging, the destructive-overwrite guard, datastore
// (re)initialization, and server startup/shutdown ordering.
package lifecycle

import (
	"fmt"
	"io"
	"os"

	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/datastore"
)

// ConfirmToken is the literal an operator must type to authorize erasing
// existing data. Compared case-sensitively; flag presence alone is never
// enough.
const ConfirmToken = "REMOVEALLDATA"

// ConfigStore abstracts the persisted-record store so the state machine is
// testable against a fake.
type ConfigStore interface {
	Exists(baseFolder string) bool
	Read(baseFolder string) (*config.Config, error)
	Write(baseFolder string, cfg *config.Config) error
}

// FileStore is the on-disk ConfigStore used outside tests.
type FileStore struct{}

func (FileStore) Exists(baseFolder string) bool { return config.Exists(baseFolder) }

func (FileStore) Read(baseFolder string) (*config.Config, error) {
	return config.Read(baseFolder)
}

func (FileStore) Write(baseFolder string, cfg *config.Config) error {
	return config.Write(baseFolder, cfg)
}

// PromptFunc reads one line of operator input under a label.
type PromptFunc func(label string) (string, error)

// Manager drives the operation state machine. It is the exclusive owner of
// the server runtime's resource set and the only caller of destructive
// datastore operations.
type Manager struct {
	Store ConfigStore

	// Adapter selects the datastore lifecycle adapter per backend.
	Adapter func(config.Backend) (datastore.Lifecycle, error)

	// Prompt collects the destructive confirmation token.
	Prompt PromptFunc

	// Out receives operator-facing messages.
	Out io.Writer
}

// NewManager wires the manager against the real store, adapters and stdout.
// The prompt is supplied by the command layer, which owns the terminal.
func NewManager(prompt PromptFunc) *Manager {
	return &Manager{
		Store:   FileStore{},
		Adapter: datastore.ForBackend,
		Prompt:  prompt,
		Out:     os.Stdout,
	}
}

func (m *Manager) printf(format string, args ...any) {
	fmt.Fprintf(m.Out, format+"\n", args...)
}

// MergedConfig reads the persisted record and applies the CLI view under
// the field-group precedence rule: only server-settings fields the operator
// explicitly supplied override the record.
func (m *Manager) MergedConfig(baseFolder string, cli *config.Config, changed map[string]bool) (*config.Config, error) {
	persisted, err := m.Store.Read(baseFolder)
	if err != nil {
		return nil, err
	}

	merged := config.Merge(persisted, cli, changed)
	if err := config.Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}
