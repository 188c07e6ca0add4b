package commands

import (
	"github.com/spf13/cobra"

	"github.com/molsci/fractal/internal/cli/prompt"
	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/lifecycle"
)

var configCfg = config.DefaultConfig()

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the current Fractal configuration",
	Long: `Display the merged Fractal configuration with the database password
redacted.

Examples:
  # Show the configuration under ~/.fractal
  fractal-server config

  # Show a specific instance
  fractal-server config --base-folder /srv/fractal`,
	RunE: runConfig,
}

func init() {
	config.BindNamed(configCmd.Flags(), configCfg, "base-folder")
}

func runConfig(cmd *cobra.Command, args []string) error {
	m := lifecycle.NewManager(prompt.TypedInput)
	return lifecycle.ShowConfig(m, configCfg.BaseFolder, configCfg, config.ChangedFields(cmd.Flags()))
}
