// Package analysis derives monthly spend aggregates, anomaly signals and
// savings suggestions from a transaction history.
//
// Every function here is pure: inputs are read, never modified, and results
// are freshly allocated on each call. Callers may run them concurrently over
// distinct snapshots without synchronization.
package analysis

import (
	"math"

	"spendwise/internal/core"
)

// meanStdev returns the mean and population standard deviation of xs.
// An empty slice yields zeros.
func meanStdev(xs []float64) (mean, stdev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

func amountOf(t core.Transaction) float64 {
	return core.CoerceAmount(t.Amount)
}

// orderedSums accumulates per-key totals, remembering first-seen key order.
type orderedSums struct {
	keys []string
	sums map[string]float64
}

func newOrderedSums() *orderedSums {
	return &orderedSums{sums: make(map[string]float64)}
}

func (o *orderedSums) add(key string, v float64) {
	if _, ok := o.sums[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.sums[key] += v
}
