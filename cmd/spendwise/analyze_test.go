package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,amount,category,merchant,note,need
2024-03-01,1200,Groceries,BigBasket,,need
2024-03-02,300,Dining,Swiggy,,want
2024-02-02,300,Dining,Swiggy,,want
bad,1,Dining,X,,want
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunAnalyzeJSON(t *testing.T) {
	csvPath := writeFile(t, "x.csv", sampleCSV)
	budgets := writeFile(t, "b.yaml", "budgets:\n  - {category: Groceries, month: \"2024-03\", amount: 1000}\n")

	var out bytes.Buffer
	require.NoError(t, runAnalyze(&out, analyzeOptions{file: csvPath, month: "2024-03", budgets: budgets, currency: "$"}))

	var report struct {
		Analysis struct {
			Total       float64 `json:"total"`
			BudgetFlags []struct {
				Category string  `json:"category"`
				OverBy   float64 `json:"overBy"`
			} `json:"budgetFlags"`
		} `json:"analysis"`
		Suggestions []struct {
			Title string `json:"title"`
		} `json:"suggestions"`
		Skipped []struct {
			Line int `json:"line"`
		} `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1500.0, report.Analysis.Total)
	require.Len(t, report.Analysis.BudgetFlags, 1)
	assert.Equal(t, 200.0, report.Analysis.BudgetFlags[0].OverBy)
	require.NotEmpty(t, report.Suggestions)
	assert.Equal(t, "Over Budget: Groceries", report.Suggestions[0].Title)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 5, report.Skipped[0].Line)
}

func TestRunAnalyzeText(t *testing.T) {
	csvPath := writeFile(t, "x.csv", sampleCSV)

	var out bytes.Buffer
	require.NoError(t, runAnalyze(&out, analyzeOptions{file: csvPath, month: "2024-03", currency: "$", text: true}))

	text := out.String()
	assert.Contains(t, text, "Total:        $1,500")
	assert.Contains(t, text, "Skipped rows: 1")
	assert.True(t, strings.Contains(text, "1. "), text)
}

func TestRunAnalyzeErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runAnalyze(&out, analyzeOptions{file: "missing.csv", month: "2024-03"}))
	assert.Error(t, runAnalyze(&out, analyzeOptions{file: writeFile(t, "x.csv", sampleCSV), month: "2024-3"}))
	assert.Error(t, runAnalyze(&out, analyzeOptions{file: writeFile(t, "x.csv", "a,b\n1,2\n"), month: "2024-03"}))
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "analyze", "import", "export", "migrate"} {
		assert.True(t, names[want], want)
	}
}
