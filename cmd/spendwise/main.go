package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/config"
	applog "spendwise/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spendwise",
		Short:         "Monthly spend analysis and savings suggestions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cli.LoadEnvFile()
		},
	}
	root.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newImportCmd(),
		newExportCmd(),
		newMigrateCmd(),
	)
	return root
}

// setup loads the validated config and the logger every store-backed
// command needs. Logs go to stderr so stdout stays clean for output.
func setup() (*config.Config, *applog.Logger, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg, os.Stderr), nil
}
