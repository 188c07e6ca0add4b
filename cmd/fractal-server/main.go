package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/molsci/fractal/cmd/fractal-server/commands"
	"github.com/molsci/fractal/pkg/config"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy to operator-facing exit codes:
// 2 means the configuration already exists and --overwrite was not given,
// 1 covers everything else (missing configuration, declined confirmation,
// validation failures, runtime errors).
func exitCode(err error) int {
	if errors.Is(err, config.ErrAlreadyInitialized) {
		return 2
	}
	return 1
}
