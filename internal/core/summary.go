package core

import "slices"

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MerchantTotal is the amount spent at one merchant.
type MerchantTotal struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}

// WantsNeeds splits a month's spend into discretionary and essential parts.
type WantsNeeds struct {
	Want float64 `json:"want"`
	Need float64 `json:"need"`
}

// BudgetFlag reports a category whose spend exceeded its budget.
type BudgetFlag struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Budget   float64 `json:"budget"`
	OverBy   float64 `json:"overBy"`
}

// SmallDrain counts low-value discretionary purchases at a merchant.
type SmallDrain struct {
	Merchant string `json:"merchant"`
	Count    int    `json:"count"`
}

// RecurringCharge is a merchant with a stable month-to-month spend.
type RecurringCharge struct {
	Merchant string  `json:"merchant"`
	Mean     float64 `json:"mean"`
	Months   int     `json:"months"`
}

// Analysis is the derived view of one month of spending.
type Analysis struct {
	Month        MonthKey          `json:"month"`
	InMonth      []Transaction     `json:"inMonth"`
	Total        float64           `json:"total"`
	CatArr       []CategoryTotal   `json:"catArr"`
	TopMerchants []MerchantTotal   `json:"topMerchants"`
	WantsNeeds   WantsNeeds        `json:"wantsNeeds"`
	BudgetFlags  []BudgetFlag      `json:"budgetFlags"`
	SmallDrains  []SmallDrain      `json:"smallDrains"`
	Outliers     []Transaction     `json:"outliers"`
	Recurring    []RecurringCharge `json:"recurring"`
}

// Clone returns a copy of a that shares no slices with it.
func (a Analysis) Clone() Analysis {
	a.InMonth = slices.Clone(a.InMonth)
	a.CatArr = slices.Clone(a.CatArr)
	a.TopMerchants = slices.Clone(a.TopMerchants)
	a.BudgetFlags = slices.Clone(a.BudgetFlags)
	a.SmallDrains = slices.Clone(a.SmallDrains)
	a.Outliers = slices.Clone(a.Outliers)
	a.Recurring = slices.Clone(a.Recurring)
	return a
}

// Suggestion is a ranked, human-readable savings recommendation. Impact is
// the estimated monthly amount recoverable by following it.
type Suggestion struct {
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Impact float64 `json:"impact"`
}

// Snapshot is the persisted headline of a month's analysis.
type Snapshot struct {
	Month         MonthKey `json:"month"`
	Total         float64  `json:"total"`
	Want          float64  `json:"want"`
	Need          float64  `json:"need"`
	Transactions  int      `json:"transactions"`
	BudgetFlags   int      `json:"budgetFlags"`
	Outliers      int      `json:"outliers"`
	TopSuggestion string   `json:"topSuggestion,omitempty"`
	TopImpact     float64  `json:"topImpact"`
	ComputedAt    string   `json:"computedAt"`
}
