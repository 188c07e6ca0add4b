package commands

import (
	"github.com/spf13/cobra"

	"github.com/molsci/fractal/internal/cli/prompt"
	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/lifecycle"
)

var (
	initOverwrite bool
	initCfg       = config.DefaultConfig()
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a Fractal server and its database",
	Long: `Initialize a Fractal server: create the base folder, bring up the
database backend, and persist the configuration file.

Database settings can only be set here; after initialization they are
authoritative from the configuration file and `+ "`fractal-server start`" + `
may only override server settings.

Re-initializing an existing base folder requires --overwrite and a typed
confirmation, and erases all existing data.

Examples:
  # Initialize with defaults under ~/.fractal
  fractal-server init

  # Initialize a sqlite-backed instance elsewhere
  fractal-server init --base-folder /srv/fractal --db-backend sqlite

  # Re-initialize, destroying existing data (prompts for confirmation)
  fractal-server init --overwrite`,
	RunE: runInit,
}

func init() {
	fs := initCmd.Flags()
	config.BindFlags(fs, initCfg)
	fs.BoolVar(&initOverwrite, "overwrite", false,
		"Overwrite the current configuration file (requires typed confirmation, erases all data)")
}

func runInit(cmd *cobra.Command, args []string) error {
	m := lifecycle.NewManager(prompt.TypedInput)
	return lifecycle.Init(cmd.Context(), m, initCfg, initOverwrite)
}
