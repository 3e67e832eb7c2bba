package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"weeklykeeper/internal/core"
	ports "weeklykeeper/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	settlementsSheet string
}

// Ensure interface conformance
var _ ports.SettlementWriter = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet. Credentials come
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. sheetName defaults to "Settlements"; the
// current year is prefixed automatically.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	base := strings.TrimSpace(sheetName)
	if base == "" {
		base = "Settlements"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		settlementsSheet: yearPrefixedName(base, time.Now().Year()),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
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
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet_scope", gsheet.SpreadsheetsScope)
	return service, nil
}

// AppendWeek writes one settlement row:
// week start, range label, work days, hours, wage, spend, budget, excess, net.
func (c *Client) AppendWeek(ctx context.Context, week core.WeekData, s core.Settlement) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row from the current sheet dimensions.
	rng := fmt.Sprintf("%s!A:A", c.settlementsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.settlementsSheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:I%d", c.settlementsSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		week.WeekStartKey,
		core.WeekRangeLabel(week.WeekStartKey),
		week.WorkDayCount(),
		s.TotalHours,
		s.Wage,
		s.Spend,
		s.Budget,
		s.Excess,
		s.Net,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update row in sheet %s: %w", c.settlementsSheet, err)
	}

	ref := fmt.Sprintf("%s!A%d", c.settlementsSheet, nextRow)
	slog.InfoContext(ctx, "Mirrored settlement row",
		"week", week.WeekStartKey,
		"sheets_ref", ref)
	return ref, nil
}

// yearPrefixedName builds "2026 Settlements" style sheet names.
func yearPrefixedName(base string, year int) string {
	if strings.Contains(base, "%d") {
		return fmt.Sprintf(base, year)
	}
	return fmt.Sprintf("%d %s", year, base)
}
