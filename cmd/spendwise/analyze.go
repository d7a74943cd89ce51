package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spendwise/internal/analysis"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/csvio"
)

type analyzeOptions struct {
	file     string
	month    string
	budgets  string
	currency string
	text     bool
}

type analyzeReport struct {
	Analysis    core.Analysis     `json:"analysis"`
	Suggestions []core.Suggestion `json:"suggestions"`
	Skipped     []csvio.RowError  `json:"skipped"`
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one month of a CSV export without a store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "expense CSV to analyze")
	cmd.Flags().StringVar(&opts.month, "month", "", "month to analyze (YYYY-MM)")
	cmd.Flags().StringVar(&opts.budgets, "budgets", "", "YAML seed file with monthly budgets")
	cmd.Flags().StringVar(&opts.currency, "currency", core.DefaultCurrencySymbol, "currency symbol used in suggestions")
	cmd.Flags().BoolVar(&opts.text, "text", false, "print a human readable summary instead of JSON")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func runAnalyze(out io.Writer, opts analyzeOptions) error {
	month, err := core.ParseMonthKey(opts.month)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}
	defer f.Close()
	parsed, err := csvio.Read(f)
	if err != nil {
		return err
	}

	budgets := core.Budgets{}
	if opts.budgets != "" {
		seed, err := config.LoadSeed(opts.budgets)
		if err != nil {
			return err
		}
		budgets = seed.BudgetsFor(month)
	}

	a := analysis.Analyze(parsed.Transactions, budgets, month)
	report := analyzeReport{
		Analysis:    a,
		Suggestions: analysis.NewRanker(opts.currency).Rank(a),
		Skipped:     parsed.Skipped,
	}

	if opts.text {
		return printSummary(out, report, opts.currency)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printSummary(out io.Writer, r analyzeReport, symbol string) error {
	a := r.Analysis
	lines := []string{
		fmt.Sprintf("Month:        %s", a.Month),
		fmt.Sprintf("Transactions: %s", humanize.Comma(int64(len(a.InMonth)))),
		fmt.Sprintf("Total:        %s", core.FormatCurrency(a.Total, symbol)),
		fmt.Sprintf("Wants/Needs:  %s / %s", core.FormatCurrency(a.WantsNeeds.Want, symbol), core.FormatCurrency(a.WantsNeeds.Need, symbol)),
		fmt.Sprintf("Over budget:  %d  Outliers: %d  Recurring: %d", len(a.BudgetFlags), len(a.Outliers), len(a.Recurring)),
	}
	if len(r.Skipped) > 0 {
		lines = append(lines, fmt.Sprintf("Skipped rows: %d", len(r.Skipped)))
	}
	if len(r.Suggestions) > 0 {
		lines = append(lines, "", "Suggestions:")
		for i, s := range r.Suggestions {
			lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, s.Title, core.FormatCurrency(s.Impact, symbol)), "   "+s.Body)
		}
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}
