package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/csvio"
	applog "spendwise/internal/log"
)

func newImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import expenses from a CSV file into the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer f.Close()
			parsed, err := csvio.Read(f)
			if err != nil {
				return err
			}

			res, err := cli.CreateBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer res.Cleanup()
			app := cli.BuildServices(res, cfg, logger)
			defer app.Cache.Stop()

			result, err := app.Services.Expenses.Import(cmd.Context(), parsed.Transactions)
			if err != nil {
				return err
			}
			for _, s := range parsed.Skipped {
				logger.Warn("Row skipped", applog.FieldError, s.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s expenses (batch %s, %s skipped)\n",
				humanize.Comma(int64(result.Imported)), result.BatchID, humanize.Comma(int64(len(parsed.Skipped))))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "expense CSV to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
