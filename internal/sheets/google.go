// Package sheets appends posted transactions to a Google Sheet as an
// off-process backup of the ledger.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/fromsofaraway/financial-tracker/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewClient creates a Sheets client. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or Application
// Default Credentials, in that order.
func NewClient(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	var opts []goption.ClientOption
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	if credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); credsJSON != "" {
		opts = append(opts, goption.WithCredentialsJSON([]byte(credsJSON)))
	} else if credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")); credsFile != "" {
		opts = append(opts, goption.WithCredentialsFile(credsFile))
	}
	// Otherwise Application Default Credentials

	return gsheet.NewService(ctx, opts...)
}

// AppendTransaction appends one ledger record as a sheet row:
// date, user id, kind, category, amount, description.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) error {
	vr := &gsheet.ValueRange{
		Values: [][]any{{
			t.PostedAt.Format("2006-01-02 15:04:05"),
			t.UserID,
			string(t.Kind),
			t.Category,
			t.Amount.String(),
			t.Description,
		}},
	}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Transaction appended to Google Sheets",
		"id", t.ID,
		"user_id", t.UserID,
		"sheet", c.sheetName)

	return nil
}
