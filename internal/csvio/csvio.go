// Package csvio reads and writes expenses as CSV with the columns
// date,amount,category,merchant,note,need.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// Header is the column order written by Write.
var Header = []string{"date", "amount", "category", "merchant", "note", "need"}

var requiredColumns = []string{"date", "amount", "category", "merchant"}

// RowError describes a CSV line that could not be imported.
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// ImportResult holds the rows read from a CSV and the lines skipped.
type ImportResult struct {
	Transactions []core.Transaction
	Skipped      []RowError
}

// Read parses a header-keyed expense CSV. Column order is free and unknown
// columns are ignored. Rows that fail to parse are skipped and reported with
// their line number; a missing required column fails the whole read.
func Read(r io.Reader) (ImportResult, error) {
	res := ImportResult{Transactions: []core.Transaction{}, Skipped: []RowError{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, errors.New("empty CSV")
	}
	if err != nil {
		return res, fmt.Errorf("read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return res, fmt.Errorf("CSV header missing column %q", name)
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.Skipped = append(res.Skipped, RowError{Line: perr.Line, Err: perr.Err.Error()})
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read CSV: %w", err)
		}

		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		t, err := parseRow(rec, cols)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err.Error()})
			continue
		}
		res.Transactions = append(res.Transactions, t)
	}
	return res, nil
}

func parseRow(rec []string, cols map[string]int) (core.Transaction, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", ok
		}
		return strings.TrimSpace(rec[i]), true
	}

	dateStr, _ := field("date")
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, err
	}

	amountStr, _ := field("amount")
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %q", err, amountStr)
	}

	category, _ := field("category")
	merchant, _ := field("merchant")
	note, _ := field("note")

	// a missing column means need; a present one must say so
	need := true
	if v, ok := field("need"); ok {
		need = parseNeed(v)
	}

	t := core.Transaction{
		Date:     date,
		Amount:   core.FromCents(cents),
		Category: category,
		Merchant: merchant,
		Note:     note,
		Need:     need,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func parseNeed(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "need", "true", "1":
		return true
	}
	return false
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Write renders txns in the order given, preceded by Header.
func Write(w io.Writer, txns []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, t := range txns {
		need := "want"
		if t.Need {
			need = "need"
		}
		rec := []string{
			t.Date.String(),
			decimal.NewFromInt(core.ToCents(t.Amount)).Shift(-2).StringFixed(2),
			t.Category,
			t.Merchant,
			t.Note,
			need,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export taken at now, optionally scoped to month.
func ExportFilename(month core.MonthKey, now time.Time) string {
	stamp := now.Format("20060102_150405")
	if month != "" {
		return fmt.Sprintf("expenses_%s_%s.csv", month, stamp)
	}
	return fmt.Sprintf("expenses_%s.csv", stamp)
}
