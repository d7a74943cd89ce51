package analysis

import (
	"fmt"
	"sort"

	"spendwise/internal/core"
)

const (
	maxSuggestions = 5

	wantTrimShare      = 0.2
	overBudgetShare    = 0.25
	smallDrainUnit     = 100
	smallDrainShare    = 0.4
	topMerchantShare   = 0.1
	recurringThreshold = 200
)

// Ranker turns an analysis into at most five suggestions, largest impact first.
type Ranker struct {
	symbol string
}

// NewRanker returns a Ranker rendering amounts with symbol. An empty symbol
// falls back to core.DefaultCurrencySymbol.
func NewRanker(symbol string) *Ranker {
	if symbol == "" {
		symbol = core.DefaultCurrencySymbol
	}
	return &Ranker{symbol: symbol}
}

// Rank ranks a using the default currency symbol.
func Rank(a core.Analysis) []core.Suggestion {
	return NewRanker("").Rank(a)
}

func (r *Ranker) Rank(a core.Analysis) []core.Suggestion {
	out := make([]core.Suggestion, 0, maxSuggestions)

	if want := core.CoerceAmount(a.WantsNeeds.Want); want > 0 {
		denom := core.CoerceAmount(a.Total)
		if denom == 0 {
			denom = 1
		}
		out = append(out, core.Suggestion{
			Title: "Trim Wants",
			Body: fmt.Sprintf("Your discretionary (wants) spend is %s of this month's expenses. Aim for 20-30%%. Try a no-delivery week and make coffee at home.",
				core.FormatPercent(want/denom*100)),
			Impact: want * wantTrimShare,
		})
	}

	if len(a.BudgetFlags) > 0 {
		flag := a.BudgetFlags[0]
		out = append(out, core.Suggestion{
			Title: "Over Budget: " + flag.Category,
			Body: fmt.Sprintf("You've exceeded the %s budget by %s. Set a weekly cap of %s.",
				flag.Category, r.money(flag.OverBy), r.money(flag.Budget/4)),
			Impact: min(flag.OverBy, flag.Amount*overBudgetShare),
		})
	}

	if len(a.SmallDrains) > 0 {
		drain := a.SmallDrains[0]
		out = append(out, core.Suggestion{
			Title: "Frequent small spends at " + drain.Merchant,
			Body: fmt.Sprintf("You made %d+ small purchases (< %s). Bundle purchases or set a daily limit of %s for impulse buys.",
				drain.Count, r.money(smallDrainCeiling), r.money(smallDrainUnit)),
			Impact: smallDrainUnit * float64(drain.Count) * smallDrainShare,
		})
	}

	if len(a.TopMerchants) > 0 {
		top := a.TopMerchants[0]
		out = append(out, core.Suggestion{
			Title: "Top Merchant: " + top.Merchant,
			Body: fmt.Sprintf("Consider alternatives or promo codes. Even a 10%% reduction saves %s this month.",
				r.money(top.Amount*topMerchantShare)),
			Impact: top.Amount * topMerchantShare,
		})
	}

	for _, rec := range a.Recurring {
		if rec.Mean < recurringThreshold {
			continue
		}
		out = append(out, core.Suggestion{
			Title:  "Recurring: " + rec.Merchant,
			Body:   fmt.Sprintf("Looks recurring (~%s / month). If unused, pause or downgrade.", r.money(rec.Mean)),
			Impact: rec.Mean,
		})
		break
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Impact > out[j].Impact })
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func (r *Ranker) money(v float64) string {
	return core.FormatCurrency(v, r.symbol)
}
