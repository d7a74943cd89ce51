package analysis

import (
	"math"
	"sort"

	"spendwise/internal/core"
)

const (
	topMerchantLimit = 5
	// smallDrainCeiling is the exclusive upper bound, in currency units, of a
	// small discretionary purchase.
	smallDrainCeiling = 200
	smallDrainMinHits = 5
	outlierMinCount   = 3
	outlierZScore     = 2
)

// Analyze builds the monthly view of month from the full history in txns.
// Budget entries that are missing or not positive are ignored. Recurring
// charges are detected over the whole history, not just the month.
func Analyze(txns []core.Transaction, budgets core.Budgets, month core.MonthKey) core.Analysis {
	inMonth := make([]core.Transaction, 0)
	for _, t := range txns {
		if t.MonthKey() == month {
			inMonth = append(inMonth, t)
		}
	}

	var total float64
	var wn core.WantsNeeds
	cats := newOrderedSums()
	merchants := newOrderedSums()
	for _, t := range inMonth {
		amt := amountOf(t)
		total += amt
		cats.add(t.Category, amt)
		merchants.add(t.Merchant, amt)
		if t.Need {
			wn.Need += amt
		} else {
			wn.Want += amt
		}
	}

	catArr := make([]core.CategoryTotal, 0, len(cats.keys))
	for _, c := range cats.keys {
		catArr = append(catArr, core.CategoryTotal{Category: c, Amount: cats.sums[c]})
	}
	sort.SliceStable(catArr, func(i, j int) bool { return catArr[i].Amount > catArr[j].Amount })

	top := make([]core.MerchantTotal, 0, len(merchants.keys))
	for _, m := range merchants.keys {
		top = append(top, core.MerchantTotal{Merchant: m, Amount: merchants.sums[m]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Amount > top[j].Amount })
	if len(top) > topMerchantLimit {
		top = top[:topMerchantLimit]
	}

	return core.Analysis{
		Month:        month,
		InMonth:      inMonth,
		Total:        total,
		CatArr:       catArr,
		TopMerchants: top,
		WantsNeeds:   wn,
		BudgetFlags:  budgetFlags(catArr, budgets),
		SmallDrains:  smallDrains(inMonth),
		Outliers:     outliers(inMonth),
		Recurring:    DetectRecurring(txns),
	}
}

// budgetFlags walks categories in total order, so equal overages keep it.
func budgetFlags(catArr []core.CategoryTotal, budgets core.Budgets) []core.BudgetFlag {
	flags := make([]core.BudgetFlag, 0)
	for _, ct := range catArr {
		budget := core.CoerceAmount(budgets[ct.Category])
		if budget <= 0 || ct.Amount <= budget {
			continue
		}
		flags = append(flags, core.BudgetFlag{
			Category: ct.Category,
			Amount:   ct.Amount,
			Budget:   budget,
			OverBy:   math.Max(0, ct.Amount-budget),
		})
	}
	sort.SliceStable(flags, func(i, j int) bool { return flags[i].OverBy > flags[j].OverBy })
	return flags
}

// smallDrains reports merchants in the order their first small purchase appears.
func smallDrains(inMonth []core.Transaction) []core.SmallDrain {
	var order []string
	counts := make(map[string]int)
	for _, t := range inMonth {
		if t.Need || !(amountOf(t) < smallDrainCeiling) {
			continue
		}
		if _, ok := counts[t.Merchant]; !ok {
			order = append(order, t.Merchant)
		}
		counts[t.Merchant]++
	}
	drains := make([]core.SmallDrain, 0)
	for _, m := range order {
		if counts[m] >= smallDrainMinHits {
			drains = append(drains, core.SmallDrain{Merchant: m, Count: counts[m]})
		}
	}
	return drains
}

func outliers(inMonth []core.Transaction) []core.Transaction {
	var order []string
	byCat := make(map[string][]core.Transaction)
	for _, t := range inMonth {
		if _, ok := byCat[t.Category]; !ok {
			order = append(order, t.Category)
		}
		byCat[t.Category] = append(byCat[t.Category], t)
	}

	out := make([]core.Transaction, 0)
	for _, c := range order {
		group := byCat[c]
		if len(group) < outlierMinCount {
			continue
		}
		amounts := make([]float64, len(group))
		for i, t := range group {
			amounts[i] = amountOf(t)
		}
		mean, stdev := meanStdev(amounts)
		if stdev == 0 {
			continue
		}
		for i, t := range group {
			if math.Abs(amounts[i]-mean)/stdev > outlierZScore {
				out = append(out, t)
			}
		}
	}
	return out
}
