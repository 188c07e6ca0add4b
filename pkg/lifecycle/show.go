package lifecycle

import (
	"gopkg.in/yaml.v3"

	"github.com/molsci/fractal/pkg/config"
)

// ShowConfig prints the merged configuration with secret fields redacted.
// Fails with ErrNotInitialized when no persisted record exists.
func ShowConfig(m *Manager, baseFolder string, cli *config.Config, changed map[string]bool) error {
	merged, err := m.MergedConfig(baseFolder, cli, changed)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(merged.Redacted())
	if err != nil {
		return err
	}

	m.printf("Displaying Fractal configuration:\n")
	m.printf("%s", out)
	return nil
}
