package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Exists reports whether a persisted record is present at the base folder.
func Exists(baseFolder string) bool {
	_, err := os.Stat(filepath.Join(baseFolder, ConfigFileName))
	return err == nil
}

// Read loads the persisted record at the base folder, applies defaults and
// validates it. Returns ErrNotInitialized when the base folder or the
// record is missing.
func Read(baseFolder string) (*Config, error) {
	if _, err := os.Stat(baseFolder); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: base folder %s does not exist", ErrNotInitialized, baseFolder)
	}

	path := filepath.Join(baseFolder, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, path)
	}

	return load(path, baseFolder)
}

// Write persists the record atomically: the YAML is written to a temp file
// in the same directory and renamed over the target, so a crash mid-write
// cannot leave a truncated record. The file is 0600 because it may hold the
// database password.
func Write(baseFolder string, cfg *Config) error {
	if err := os.MkdirAll(baseFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create base folder %s: %w", baseFolder, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(baseFolder, ConfigFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp config file: %w", err)
	}

	target := filepath.Join(baseFolder, ConfigFileName)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config file %s: %w", target, err)
	}

	return nil
}
