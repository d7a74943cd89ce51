package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func tx(date, category, merchant string, amount float64, need bool) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:       fmt.Sprintf("%s-%s-%v", date, merchant, amount),
		Date:     d,
		Amount:   amount,
		Category: category,
		Merchant: merchant,
		Need:     need,
	}
}

func mixedHistory() []core.Transaction {
	return []core.Transaction{
		tx("2024-02-03", "Groceries", "BigBasket", 900, true),
		tx("2024-03-01", "Groceries", "BigBasket", 700, true),
		tx("2024-03-02", "Dining", "Swiggy", 399, false),
		tx("2024-03-05", "Dining", "Swiggy", 420, false),
		tx("2024-03-09", "Dining", "Zomato", 5000, false),
		tx("2024-03-12", "Groceries", "DMart", 500, true),
		tx("2024-03-15", "Transport", "Uber", 250, false),
		tx("2024-03-16", "Transport", "Ola", 180, false),
		tx("2024-03-20", "Shopping", "Amazon", 1500, false),
		tx("2024-03-21", "Rent", "Landlord", 15000, true),
		tx("2024-04-01", "Dining", "Swiggy", 300, false),
	}
}

func TestAnalyze_FiltersByMonth(t *testing.T) {
	a := Analyze(mixedHistory(), nil, "2024-03")

	require.Len(t, a.InMonth, 9)
	for _, it := range a.InMonth {
		assert.Equal(t, core.MonthKey("2024-03"), it.MonthKey())
	}
	assert.Equal(t, "BigBasket", a.InMonth[0].Merchant, "input order is preserved")
	assert.Equal(t, "Landlord", a.InMonth[8].Merchant)
	assert.InDelta(t, 700+399+420+5000+500+250+180+1500+15000, a.Total, 1e-9)
}

func TestAnalyze_TotalsAreConsistent(t *testing.T) {
	a := Analyze(mixedHistory(), nil, "2024-03")

	var catSum float64
	for _, c := range a.CatArr {
		catSum += c.Amount
	}
	assert.InDelta(t, a.Total, catSum, 1e-9)
	assert.InDelta(t, a.Total, a.WantsNeeds.Need+a.WantsNeeds.Want, 1e-9)
	assert.InDelta(t, 16200, a.WantsNeeds.Need, 1e-9)
	assert.InDelta(t, 7749, a.WantsNeeds.Want, 1e-9)
}

func TestAnalyze_SortInvariants(t *testing.T) {
	a := Analyze(mixedHistory(), core.Budgets{"Dining": 1000, "Shopping": 1000, "Rent": 100}, "2024-03")

	for i := 1; i < len(a.CatArr); i++ {
		assert.GreaterOrEqual(t, a.CatArr[i-1].Amount, a.CatArr[i].Amount)
	}
	require.Len(t, a.TopMerchants, 5)
	for i := 1; i < len(a.TopMerchants); i++ {
		assert.GreaterOrEqual(t, a.TopMerchants[i-1].Amount, a.TopMerchants[i].Amount)
	}
	assert.Equal(t, "Landlord", a.TopMerchants[0].Merchant)
	require.Len(t, a.BudgetFlags, 3)
	for i := 1; i < len(a.BudgetFlags); i++ {
		assert.GreaterOrEqual(t, a.BudgetFlags[i-1].OverBy, a.BudgetFlags[i].OverBy)
	}
	assert.Equal(t, "Rent", a.BudgetFlags[0].Category)
}

func TestAnalyze_CategoryTiesKeepEncounterOrder(t *testing.T) {
	txns := []core.Transaction{
		tx("2024-03-01", "B", "m1", 100, true),
		tx("2024-03-02", "A", "m2", 100, true),
		tx("2024-03-03", "C", "m3", 300, true),
	}
	a := Analyze(txns, nil, "2024-03")
	require.Len(t, a.CatArr, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{a.CatArr[0].Category, a.CatArr[1].Category, a.CatArr[2].Category})
}

func TestAnalyze_FewMerchantsAreNotPadded(t *testing.T) {
	txns := []core.Transaction{
		tx("2024-03-01", "Dining", "Swiggy", 100, false),
		tx("2024-03-02", "Dining", "Swiggy", 50, false),
		tx("2024-03-02", "Dining", "Zomato", 20, false),
	}
	a := Analyze(txns, nil, "2024-03")
	require.Len(t, a.TopMerchants, 2)
	assert.Equal(t, core.MerchantTotal{Merchant: "Swiggy", Amount: 150}, a.TopMerchants[0])
}

func TestAnalyze_BudgetFlagExample(t *testing.T) {
	txns := []core.Transaction{
		tx("2024-03-01", "Groceries", "BigBasket", 700, true),
		tx("2024-03-08", "Groceries", "DMart", 500, true),
		tx("2024-03-09", "Dining", "Swiggy", 5000, false),
	}
	a := Analyze(txns, core.Budgets{"Groceries": 1000, "Dining": 0, "Travel": 10}, "2024-03")

	require.Len(t, a.BudgetFlags, 1)
	assert.Equal(t, core.BudgetFlag{Category: "Groceries", Amount: 1200, Budget: 1000, OverBy: 200}, a.BudgetFlags[0])
}

func TestAnalyze_SpendAtBudgetIsNotFlagged(t *testing.T) {
	txns := []core.Transaction{tx("2024-03-01", "Groceries", "DMart", 1000, true)}
	a := Analyze(txns, core.Budgets{"Groceries": 1000}, "2024-03")
	assert.Empty(t, a.BudgetFlags)
}

func TestAnalyze_SmallDrains(t *testing.T) {
	var txns []core.Transaction
	for i := 1; i <= 4; i++ {
		txns = append(txns, tx(fmt.Sprintf("2024-03-%02d", i), "Dining", "TeaStall", 20, false))
	}
	for i := 1; i <= 6; i++ {
		txns = append(txns, tx(fmt.Sprintf("2024-03-%02d", i+4), "Dining", "Starbucks", 180, false))
	}
	for i := 1; i <= 5; i++ {
		txns = append(txns,
			tx(fmt.Sprintf("2024-03-%02d", i+10), "Groceries", "Kirana", 50, true),
			tx(fmt.Sprintf("2024-03-%02d", i+10), "Shopping", "Myntra", 200, false),
		)
	}
	// one more tea stall visit, in a different month
	txns = append(txns, tx("2024-04-01", "Dining", "TeaStall", 20, false))

	a := Analyze(txns, nil, "2024-03")
	assert.Equal(t, []core.SmallDrain{{Merchant: "Starbucks", Count: 6}}, a.SmallDrains)
}

func TestAnalyze_SmallDrainsKeepFirstSeenOrder(t *testing.T) {
	var txns []core.Transaction
	for i := 1; i <= 5; i++ {
		txns = append(txns,
			tx(fmt.Sprintf("2024-03-%02d", i), "Dining", "Chaayos", 90, false),
			tx(fmt.Sprintf("2024-03-%02d", i), "Dining", "Starbucks", 150, false),
		)
	}
	txns = append(txns, tx("2024-03-10", "Dining", "Starbucks", 150, false))

	a := Analyze(txns, nil, "2024-03")
	assert.Equal(t, []core.SmallDrain{
		{Merchant: "Chaayos", Count: 5},
		{Merchant: "Starbucks", Count: 6},
	}, a.SmallDrains)
	assert.Equal(t, a.SmallDrains, Analyze(txns, nil, "2024-03").SmallDrains)
}

func TestAnalyze_OutlierIsZScoreNotMagnitude(t *testing.T) {
	txns := []core.Transaction{
		tx("2024-03-02", "Dining", "Swiggy", 399, false),
		tx("2024-03-05", "Dining", "Swiggy", 420, false),
		tx("2024-03-09", "Dining", "Zomato", 5000, false),
	}
	a := Analyze(txns, nil, "2024-03")
	assert.Empty(t, a.Outliers)
}

func TestAnalyze_OutlierFlagged(t *testing.T) {
	var txns []core.Transaction
	for i := 1; i <= 6; i++ {
		txns = append(txns, tx(fmt.Sprintf("2024-03-%02d", i), "Transport", "Metro", 10, true))
	}
	spike := tx("2024-03-20", "Transport", "Uber", 100, false)
	txns = append(txns, spike)
	// a wide spread in a two-transaction category is never tested
	txns = append(txns,
		tx("2024-03-21", "Shopping", "Amazon", 10, false),
		tx("2024-03-22", "Shopping", "Amazon", 100000, false),
	)

	a := Analyze(txns, nil, "2024-03")
	require.Len(t, a.Outliers, 1)
	assert.Equal(t, spike, a.Outliers[0])
}

func TestAnalyze_UniformCategoryHasNoOutliers(t *testing.T) {
	txns := []core.Transaction{
		tx("2024-03-01", "Rent", "Landlord", 500, true),
		tx("2024-03-02", "Rent", "Landlord", 500, true),
		tx("2024-03-03", "Rent", "Landlord", 500, true),
	}
	a := Analyze(txns, nil, "2024-03")
	assert.Empty(t, a.Outliers)
}

func TestAnalyze_EmptyMonth(t *testing.T) {
	a := Analyze(mixedHistory(), core.Budgets{"Dining": 1}, "2023-01")

	assert.Zero(t, a.Total)
	assert.NotNil(t, a.InMonth)
	assert.NotNil(t, a.CatArr)
	assert.NotNil(t, a.TopMerchants)
	assert.NotNil(t, a.BudgetFlags)
	assert.NotNil(t, a.SmallDrains)
	assert.NotNil(t, a.Outliers)
	assert.NotNil(t, a.Recurring)
	assert.Empty(t, a.InMonth)
	assert.Empty(t, a.BudgetFlags)
}

func TestAnalyze_NonFiniteAmountsCountAsZero(t *testing.T) {
	nan := tx("2024-03-01", "Dining", "Swiggy", 0, false)
	nan.Amount = nanValue()
	txns := []core.Transaction{nan, tx("2024-03-02", "Dining", "Swiggy", 100, false)}

	a := Analyze(txns, nil, "2024-03")
	assert.InDelta(t, 100, a.Total, 1e-9)
	assert.InDelta(t, 100, a.WantsNeeds.Want, 1e-9)
}

func TestAnalyze_IsPure(t *testing.T) {
	in := mixedHistory()
	snapshot := append([]core.Transaction(nil), in...)
	budgets := core.Budgets{"Dining": 1000}

	first := Analyze(in, budgets, "2024-03")
	second := Analyze(in, budgets, "2024-03")

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, in)
	assert.Equal(t, core.Budgets{"Dining": 1000}, budgets)

	// results do not alias the input
	first.InMonth[0].Merchant = "changed"
	assert.Equal(t, "BigBasket", in[1].Merchant)
}

func TestAnalyze_RecurringUsesFullHistory(t *testing.T) {
	txns := []core.Transaction{
		tx("2024-01-05", "Subscriptions", "Netflix", 999, false),
		tx("2024-02-05", "Subscriptions", "Netflix", 999, false),
		tx("2024-03-05", "Subscriptions", "Netflix", 999, false),
	}
	a := Analyze(txns, nil, "2024-03")
	assert.Equal(t, []core.RecurringCharge{{Merchant: "Netflix", Mean: 999, Months: 3}}, a.Recurring)
}
