package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"spendwise/internal/core"
)

// Seed is the optional YAML document that preloads categories and budgets.
//
//	categories: [Groceries, Dining]
//	budgets:
//	  - {category: Groceries, month: "2024-03", amount: 8000}
type Seed struct {
	Categories []string     `yaml:"categories"`
	Budgets    []SeedBudget `yaml:"budgets"`
}

type SeedBudget struct {
	Category string  `yaml:"category"`
	Month    string  `yaml:"month"`
	Amount   float64 `yaml:"amount"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, b := range s.Budgets {
		budget := core.Budget{Category: b.Category, Month: core.MonthKey(b.Month), Amount: b.Amount}
		if err := budget.Validate(); err != nil {
			return nil, fmt.Errorf("seed budget %d (%s %s): %w", i, b.Category, b.Month, err)
		}
	}
	return &s, nil
}

// CoreBudgets converts the seed entries to domain budgets.
func (s *Seed) CoreBudgets() []core.Budget {
	out := make([]core.Budget, 0, len(s.Budgets))
	for _, b := range s.Budgets {
		out = append(out, core.Budget{Category: b.Category, Month: core.MonthKey(b.Month), Amount: b.Amount})
	}
	return out
}

// BudgetsFor returns the category budget mapping for one month.
func (s *Seed) BudgetsFor(month core.MonthKey) core.Budgets {
	out := make(core.Budgets)
	for _, b := range s.Budgets {
		if core.MonthKey(b.Month) == month {
			out[b.Category] = b.Amount
		}
	}
	return out
}
