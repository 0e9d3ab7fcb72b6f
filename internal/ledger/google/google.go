// Package google mirrors attendance facts into a Google Sheets
// spreadsheet. The mirror is advisory: SQLite stays the source of
// truth and a failed append never fails the original mutation.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"splitride/internal/config"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromConfig creates a Sheets client from the configuration, using
// service-account credentials. Returns (nil, nil) when no spreadsheet
// ID is configured, so callers can treat the mirror as disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, nil
	}

	var credentialsJSON []byte
	switch {
	case cfg.GoogleCredentialsJSON != "":
		credentialsJSON = []byte(cfg.GoogleCredentialsJSON)
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing Google credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror enabled",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
	}, nil
}

// AppendAttendance appends one attendance fact as a spreadsheet row:
// date, partner, rider, amount in currency units.
func (c *Client) AppendAttendance(ctx context.Context, partnerID, riderID, date string, amountCents int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	amount := float64(amountCents) / 100.0
	rng := fmt.Sprintf("%s!A:D", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{date, partnerID, riderID, amount}}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}

// Enabled reports whether the mirror is configured and usable.
func (c *Client) Enabled() bool { return c != nil && c.svc != nil }
