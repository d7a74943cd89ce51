package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spendwise/internal/core"
)

func TestExpenseFilterNormalize(t *testing.T) {
	f := ExpenseFilter{Skip: -3, Limit: 0, Search: "  swig "}.Normalize()
	assert.Equal(t, 0, f.Skip)
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, "swig", f.Search)

	assert.Equal(t, MaxListLimit, ExpenseFilter{Limit: 5000}.Normalize().Limit)
	assert.Equal(t, 7, ExpenseFilter{Limit: 7}.Normalize().Limit)
}

func TestExpenseFilterMatch(t *testing.T) {
	tx := core.Transaction{
		Date:     core.NewDate(2024, 3, 9),
		Amount:   120,
		Category: "Dining",
		Merchant: "Blue Tokai",
		Note:     "Morning Coffee",
	}
	need, want := true, false

	cases := []struct {
		name string
		f    ExpenseFilter
		ok   bool
	}{
		{"empty filter", ExpenseFilter{}, true},
		{"month match", ExpenseFilter{Month: "2024-03"}, true},
		{"month mismatch", ExpenseFilter{Month: "2024-04"}, false},
		{"category mismatch", ExpenseFilter{Category: "Groceries"}, false},
		{"need mismatch", ExpenseFilter{Need: &need}, false},
		{"want match", ExpenseFilter{Need: &want}, true},
		{"search merchant", ExpenseFilter{Search: "tokai"}, true},
		{"search note", ExpenseFilter{Search: "COFFEE"}, true},
		{"search category", ExpenseFilter{Search: "din"}, true},
		{"search miss", ExpenseFilter{Search: "uber"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.f.Match(tx))
		})
	}
}

func TestBudgetFilterMatch(t *testing.T) {
	b := core.Budget{Category: "Dining", Month: "2024-03"}
	assert.True(t, BudgetFilter{}.Match(b))
	assert.True(t, BudgetFilter{Month: "2024-03", Category: "Dining"}.Match(b))
	assert.False(t, BudgetFilter{Month: "2024-04"}.Match(b))
	assert.False(t, BudgetFilter{Category: "Rent"}.Match(b))
}
