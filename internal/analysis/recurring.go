package analysis

import (
	"math"
	"sort"

	"spendwise/internal/core"
)

const (
	// minRecurringMonths is the number of distinct months needed before a
	// merchant can be called recurring.
	minRecurringMonths = 2
	// recurringVariance bounds stdev relative to the mean of monthly averages.
	recurringVariance = 0.2
)

type merchantMonths struct {
	merchant string
	order    []core.MonthKey
	amounts  map[core.MonthKey][]float64
}

// DetectRecurring scans the whole history for merchants whose average
// monthly spend is stable across at least two calendar months. Results are
// sorted by mean, largest first; equal means keep first-seen merchant order.
func DetectRecurring(txns []core.Transaction) []core.RecurringCharge {
	var merchants []*merchantMonths
	byName := make(map[string]*merchantMonths)
	for _, t := range txns {
		m, ok := byName[t.Merchant]
		if !ok {
			m = &merchantMonths{merchant: t.Merchant, amounts: make(map[core.MonthKey][]float64)}
			byName[t.Merchant] = m
			merchants = append(merchants, m)
		}
		key := t.MonthKey()
		if _, seen := m.amounts[key]; !seen {
			m.order = append(m.order, key)
		}
		m.amounts[key] = append(m.amounts[key], amountOf(t))
	}

	out := make([]core.RecurringCharge, 0)
	for _, m := range merchants {
		if len(m.order) < minRecurringMonths {
			continue
		}
		averages := make([]float64, 0, len(m.order))
		for _, key := range m.order {
			monthMean, _ := meanStdev(m.amounts[key])
			averages = append(averages, monthMean)
		}
		mean, stdev := meanStdev(averages)
		// zero-value merchants are never reported
		if mean <= 0 || stdev >= mean*recurringVariance {
			continue
		}
		out = append(out, core.RecurringCharge{
			Merchant: m.merchant,
			Mean:     math.Round(mean),
			Months:   len(m.order),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean > out[j].Mean })
	return out
}
