package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"spendwise/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	var rollback int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back) SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if rollback > 0 {
				if err := storage.RollbackMigrations(cfg.SQLiteDBPath, rollback); err != nil {
					return err
				}
				logger.Info("Migrations rolled back", "path", cfg.SQLiteDBPath, "steps", rollback)
				return nil
			}
			version, err := storage.RunMigrations(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (%s)\n", version, cfg.SQLiteDBPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "number of migrations to roll back")
	return cmd
}
