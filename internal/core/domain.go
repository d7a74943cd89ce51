package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const monthKeyLayout = "2006-01"

type (
	// MonthKey identifies a calendar month as "YYYY-MM".
	MonthKey string

	Date struct {
		time.Time
	}

	// Transaction is a single spend record. Amount is in currency units.
	Transaction struct {
		ID       string  `json:"id"`
		Date     Date    `json:"date"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Merchant string  `json:"merchant"`
		Note     string  `json:"note"`
		Need     bool    `json:"need"` // true = essential, false = discretionary
	}

	// Budgets maps a category to its monthly target. Missing or zero entries
	// mean no budget is set for that category.
	Budgets map[string]float64

	// Budget is a stored monthly target for one category.
	Budget struct {
		ID       string   `json:"id"`
		Category string   `json:"category"`
		Amount   float64  `json:"amount"`
		Month    MonthKey `json:"month"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyMerchant   = errors.New("empty merchant")
	ErrNoteTooLong     = errors.New("note too long (max 500 characters)")
	ErrUnknownCategory = errors.New("unknown category")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// MonthKey returns the calendar month the date falls in.
func (d Date) MonthKey() MonthKey {
	return MonthKeyOf(d.Time)
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKeyOf derives the month key of t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthKeyLayout))
}

// ParseMonthKey validates s against the YYYY-MM shape.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return "", fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil || year < 1 {
		return "", fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(s[5:])
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidMonth, s)
	}
	return MonthKey(s), nil
}

// Bounds returns the first day of the month and the first day of the next one.
func (m MonthKey) Bounds() (start, end time.Time, err error) {
	start, err = time.Parse(monthKeyLayout, string(m))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, m)
	}
	return start, start.AddDate(0, 1, 0), nil
}

func (m MonthKey) String() string {
	return string(m)
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !(t.Amount > 0) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if len(t.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}

// MonthKey returns the month the transaction belongs to.
func (t Transaction) MonthKey() MonthKey {
	return t.Date.MonthKey()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	if _, err := ParseMonthKey(string(b.Month)); err != nil {
		return err
	}
	return nil
}

// Clone returns an independent copy of the mapping.
func (b Budgets) Clone() Budgets {
	out := make(Budgets, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// CategorySet is the set of recognized category names, in insertion order.
type CategorySet struct {
	names []string
	index map[string]struct{}
}

func NewCategorySet(names ...string) CategorySet {
	s := CategorySet{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s = s.With(n)
	}
	return s
}

// With returns a set that also contains name. The receiver is not modified.
func (s CategorySet) With(name string) CategorySet {
	name = strings.TrimSpace(name)
	if name == "" || s.Has(name) {
		return s
	}
	out := CategorySet{
		names: append(append([]string(nil), s.names...), name),
		index: make(map[string]struct{}, len(s.names)+1),
	}
	for _, n := range out.names {
		out.index[n] = struct{}{}
	}
	return out
}

func (s CategorySet) Has(name string) bool {
	_, ok := s.index[strings.TrimSpace(name)]
	return ok
}

// Names returns the categories in insertion order.
func (s CategorySet) Names() []string {
	return append([]string(nil), s.names...)
}

func (s CategorySet) Len() int {
	return len(s.names)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
