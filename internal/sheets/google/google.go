package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
	ports "spendwise/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	Sheet           string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

// Ensure interface conformance
var _ ports.ReportPublisher = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Credentials come from cfg, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	cfg.Sheet = strings.TrimSpace(cfg.Sheet)
	if cfg.Sheet == "" {
		cfg.Sheet = "Monthly"
	}

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: cfg.Sheet, logger: logger}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// PublishSnapshot writes the month's summary row. An existing row for the
// same month is overwritten in place; otherwise the row goes after the last
// used one. A header row is written into an empty sheet first.
func (c *Client) PublishSnapshot(ctx context.Context, s core.Snapshot) (string, error) {
	if _, err := core.ParseMonthKey(string(s.Month)); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheet, err)
	}

	values := [][]any{ports.ReportRow(s)}
	row := targetRow(resp.Values, s.Month)
	if len(resp.Values) == 0 {
		values = [][]any{headerRow(), ports.ReportRow(s)}
		row = 1
	}

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.sheet, row, row+len(values)-1)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	ref := fmt.Sprintf("%s!A%d:F%d", c.sheet, row+len(values)-1, row+len(values)-1)
	c.logger.InfoContext(ctx, "Report row written",
		applog.FieldOperation, applog.OpAppend,
		applog.FieldMonth, string(s.Month),
		"range", ref)
	return ref, nil
}

// targetRow returns the 1-based row already holding month in column A, or
// the first row after the used range.
func targetRow(colA [][]any, month core.MonthKey) int {
	for i, row := range colA {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == string(month) {
			return i + 1
		}
	}
	return len(colA) + 1
}

func headerRow() []any {
	out := make([]any, len(ports.ReportHeader))
	for i, h := range ports.ReportHeader {
		out[i] = h
	}
	return out
}
