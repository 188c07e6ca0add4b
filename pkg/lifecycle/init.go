package lifecycle

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/molsci/fractal/pkg/config"
)

// Init creates (or, under the destructive-overwrite protocol, recreates)
// a Fractal instance at cfg.BaseFolder: guard, datastore bring-up, then
// persist the record. cfg is built from CLI input only; no persisted
// record grants override rights here.
func Init(ctx context.Context, m *Manager, cfg *config.Config, overwrite bool) error {
	m.printf("Initializing Fractal configuration.")

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// Guarding: never delete anything without the full protocol.
	if m.Store.Exists(cfg.BaseFolder) {
		if !overwrite {
			return config.ErrAlreadyInitialized
		}
		if err := m.destroyExisting(ctx, cfg); err != nil {
			return err
		}
	}

	// Applying: directories, datastore, then the record itself.
	if err := os.MkdirAll(cfg.BaseFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create base folder %s: %w", cfg.BaseFolder, err)
	}
	if err := os.MkdirAll(cfg.DatabasePath(), 0o755); err != nil {
		return fmt.Errorf("failed to create database folder %s: %w", cfg.DatabasePath(), err)
	}

	m.printSettings(cfg)

	adapter, err := m.Adapter(cfg.Database.Backend)
	if err != nil {
		return err
	}

	m.printf("\n>>> Setting up the %s backend...", cfg.Database.Backend)
	if err := adapter.Initialize(ctx, cfg, false); err != nil {
		return err
	}

	m.printf("\n>>> Writing settings...")
	if err := m.Store.Write(cfg.BaseFolder, cfg); err != nil {
		return err
	}

	m.printf("\n>>> Success! Please run `fractal-server start` to boot the server.")
	return nil
}

// destroyExisting runs the destructive-overwrite protocol: double warning
// naming the exact path, typed confirmation against ConfirmToken, then
// shutdown and data removal through the old record's adapter. This is the
// only path to data loss in the system.
func (m *Manager) destroyExisting(ctx context.Context, cfg *config.Config) error {
	// The existing data directory belongs to whatever backend the old
	// record configured, so shut that one down, not the new one.
	old, err := m.Store.Read(cfg.BaseFolder)
	if err != nil {
		old = cfg
	}

	m.printf("")
	m.printf("!WARNING! A Fractal configuration is currently initialized at %s", cfg.BaseFolder)
	m.printf("!WARNING! Overwriting will delete all current data, including everything in %s.", old.DatabasePath())
	m.printf("!WARNING! Use `fractal-server config` to alter configuration settings instead.")
	m.printf("")
	m.printf("!WARNING! If you are sure you wish to proceed, please type '%s' below.", ConfirmToken)

	input, err := m.Prompt("  >")
	if err != nil {
		return err
	}
	if input != ConfirmToken {
		return config.ErrConfirmationMismatch
	}

	m.printf("All data will be removed from the current Fractal instance.")

	adapter, err := m.Adapter(old.Database.Backend)
	if err != nil {
		return err
	}
	if err := adapter.Shutdown(ctx, old); err != nil {
		return err
	}
	return adapter.DestroyData(old.DatabasePath())
}

// printSettings echoes the merged settings with the secret redacted.
func (m *Manager) printSettings(cfg *config.Config) {
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return
	}
	m.printf("\n>>> Settings found:\n")
	m.printf("%s", out)
}
