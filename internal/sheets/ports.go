package sheets

import (
	"context"

	"spendwise/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportPublisher writes one summary row per month to an external report.
	// Publishing the same month again replaces its row.
	ReportPublisher interface {
		PublishSnapshot(ctx context.Context, s core.Snapshot) (rowRef string, err error)
	}
)

// ReportHeader is the column layout of a report row.
var ReportHeader = []string{"Month", "Total", "Want", "Need", "Top suggestion", "Impact"}

// ReportRow renders s in ReportHeader order. Amounts are rounded to cents.
func ReportRow(s core.Snapshot) []any {
	return []any{
		string(s.Month),
		cents(s.Total),
		cents(s.Want),
		cents(s.Need),
		s.TopSuggestion,
		cents(s.TopImpact),
	}
}

func cents(v float64) float64 {
	return core.FromCents(core.ToCents(v))
}
