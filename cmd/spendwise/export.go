package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/core"
	"spendwise/internal/csvio"
	"spendwise/internal/ports"
)

func newExportCmd() *cobra.Command {
	var month, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored expenses as CSV, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var m core.MonthKey
			if month != "" {
				var err error
				if m, err = core.ParseMonthKey(month); err != nil {
					return err
				}
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			res, err := cli.CreateBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			all, err := res.Store.AllTransactions(cmd.Context())
			if err != nil {
				return err
			}
			filter := ports.ExpenseFilter{Month: m}
			rows := make([]core.Transaction, 0, len(all))
			for _, t := range all {
				if filter.Match(t) {
					rows = append(rows, t)
				}
			}
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date.Time) })

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if out == "auto" {
					out = csvio.ExportFilename(m, time.Now())
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := csvio.Write(w, rows); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d expenses to %s\n", len(rows), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "only export this month (YYYY-MM)")
	cmd.Flags().StringVar(&out, "out", "", `output file; "auto" picks a timestamped name (default stdout)`)
	return cmd
}
