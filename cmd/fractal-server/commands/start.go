package commands

import (
	"github.com/spf13/cobra"

	"github.com/molsci/fractal/internal/cli/prompt"
	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/lifecycle"
)

var startCfg = config.DefaultConfig()

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a Fractal server instance",
	Long: `Start a Fractal server instance from the persisted configuration.

Server settings supplied here override the configuration file for this run
only; database settings always come from the file.

Examples:
  # Start with persisted settings
  fractal-server start

  # Override the listen port and log to a file
  fractal-server start --port 8888 --logfile /var/log/fractal.log

  # Enable a local compute pool with four workers
  fractal-server start --local-manager 4`,
	RunE: runStart,
}

func init() {
	config.BindNamed(startCmd.Flags(), startCfg,
		"base-folder", "port", "logfile", "local-manager")
}

func runStart(cmd *cobra.Command, args []string) error {
	m := lifecycle.NewManager(prompt.TypedInput)

	merged, err := m.MergedConfig(startCfg.BaseFolder, startCfg, config.ChangedFields(cmd.Flags()))
	if err != nil {
		return err
	}

	return lifecycle.Start(cmd.Context(), m, merged)
}
