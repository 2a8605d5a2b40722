// Package google exports dashboards to a Google Sheets spreadsheet. The
// summary sheet holds totals and breakdowns; the daily sheet holds one
// row per calendar day of the exported range.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"tutorops/internal/report"

	ports "tutorops/internal/export"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
	dailySheet    string
}

// Ensure interface conformance
var _ ports.ReportExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS; falls back to an OAuth installed-app
// flow via GOOGLE_OAUTH_CLIENT_JSON/GOOGLE_OAUTH_CLIENT_FILE plus a
// token minted by cmd/oauth-init (GOOGLE_OAUTH_TOKEN_JSON or
// GOOGLE_OAUTH_TOKEN_FILE).
// Optional sheet names: GOOGLE_SUMMARY_SHEET_NAME (default "Summary"),
// GOOGLE_DAILY_SHEET_NAME (default "Daily").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	summarySheet := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summarySheet == "" {
		summarySheet = "Summary"
	}
	dailySheet := strings.TrimSpace(os.Getenv("GOOGLE_DAILY_SHEET_NAME"))
	if dailySheet == "" {
		dailySheet = "Daily"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		summarySheet:  summarySheet,
		dailySheet:    dailySheet,
	}, nil
}

// newSheetsService initializes a Sheets Service. Service Account
// credentials take precedence; an OAuth installed-app client with a
// pre-minted token is the fallback for personal spreadsheets.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return newOAuthSheetsService(ctx)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

// newOAuthSheetsService builds a Sheets Service from an OAuth installed-app
// client and a token previously generated by cmd/oauth-init.
func newOAuthSheetsService(ctx context.Context) (*gsheet.Service, error) {
	clientJSON, err := readEnvCredential("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or GOOGLE_OAUTH_CLIENT_JSON)")
	}

	cfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth client config: %w", err)
	}

	tokenJSON, err := readEnvCredential("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created via OAuth token")
	return service, nil
}

// readEnvCredential returns the credential from the inline env var, or the
// contents of the file named by fileVar. Nil when neither is set.
func readEnvCredential(inlineVar, fileVar string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(inlineVar)); inline != "" {
		return []byte(inline), nil
	}
	if file := strings.TrimSpace(os.Getenv(fileVar)); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileVar, err)
		}
		return b, nil
	}
	return nil, nil
}

// ExportDashboard replaces the summary and daily sheets with the
// dashboard's contents.
func (c *Client) ExportDashboard(ctx context.Context, d report.Dashboard) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if err := c.writeSheet(ctx, c.summarySheet, summaryRows(d)); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	if err := c.writeSheet(ctx, c.dailySheet, dailyRows(d)); err != nil {
		return fmt.Errorf("export daily series: %w", err)
	}

	slog.InfoContext(ctx, "Exported dashboard",
		"range", d.Range.Key(),
		"days", len(d.Daily),
		"students", len(d.StudentPerformance))
	return nil
}

func (c *Client) writeSheet(ctx context.Context, sheetName string, rows [][]any) error {
	clearRange := fmt.Sprintf("%s!A:Z", sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rng := fmt.Sprintf("%s!A1", sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func summaryRows(d report.Dashboard) [][]any {
	rows := [][]any{
		{"Range", d.Range.Key()},
		{"Generated", d.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Income", units(d.Totals.Income.Cents)},
		{"Expenses", units(d.Totals.Expenses.Cents)},
		{"Profit", units(d.Totals.Profit.Cents)},
		{"Average transaction", units(d.AverageValue)},
		{},
		{"Expense category", "Amount", "Count"},
	}
	for _, label := range sortedKeys(d.ExpenseCategories) {
		e := d.ExpenseCategories[label]
		rows = append(rows, []any{label, units(e.Amount.Cents), e.Count})
	}
	rows = append(rows, []any{}, []any{"Payment method", "Amount", "Count"})
	for _, label := range sortedKeys(d.PaymentMethods) {
		e := d.PaymentMethods[label]
		rows = append(rows, []any{label, units(e.Amount.Cents), e.Count})
	}
	rows = append(rows, []any{}, []any{"Student", "Owed", "Paid in range", "Rate %"})
	for _, p := range d.StudentPerformance {
		rows = append(rows, []any{p.Name, units(p.TotalOwed.Cents), units(p.TotalPaidInRange.Cents), p.PaymentRatePercent})
	}
	return rows
}

func dailyRows(d report.Dashboard) [][]any {
	rows := make([][]any, 0, len(d.Daily)+1)
	rows = append(rows, []any{"Date", "Income", "Expenses", "Net", "Transactions"})
	for _, p := range d.Daily {
		rows = append(rows, []any{
			p.Date.Format("2006-01-02"),
			units(p.Income.Cents),
			units(p.Expenses.Cents),
			units(p.Net.Cents),
			p.TransactionCount,
		})
	}
	return rows
}

func units(cents int64) float64 {
	return float64(cents) / 100.0
}

func sortedKeys(m map[string]report.BreakdownEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
