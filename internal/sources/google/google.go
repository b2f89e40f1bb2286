// Package google reads and writes the dataset tables stored as tabs of a
// Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
	"bikeshare/internal/sources"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	dailySheet    string
	hourlySheet   string
}

// Ensure interface conformance
var (
	_ sources.Reader = (*Client)(nil)
	_ sources.Writer = (*Client)(nil)
)

// Options configures the client. CredentialsJSON wins over CredentialsFile;
// with neither set GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Options struct {
	SpreadsheetID   string
	DailySheet      string
	HourlySheet     string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.DailySheet == "" {
		opts.DailySheet = "Daily"
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		dailySheet:    opts.DailySheet,
		hourlySheet:   opts.HourlySheet,
	}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	if len(credentialsJSON) == 0 {
		path := strings.TrimSpace(opts.CredentialsFile)
		if path == "" {
			path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		}
		if path == "" {
			return nil, errors.New("missing service account credentials")
		}
		var err error
		if credentialsJSON, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func (c *Client) ReadDaily(ctx context.Context) ([]core.DailyRecord, error) {
	names, rows, err := c.readTable(ctx, c.dailySheet)
	if err != nil {
		return nil, err
	}
	return dataset.ParseDaily(names, rows)
}

// ReadHourly returns nil when no hourly sheet is configured.
func (c *Client) ReadHourly(ctx context.Context) ([]core.HourlyRecord, error) {
	if c.hourlySheet == "" {
		return nil, nil
	}
	names, rows, err := c.readTable(ctx, c.hourlySheet)
	if err != nil {
		return nil, err
	}
	return dataset.ParseHourly(names, rows)
}

func (c *Client) readTable(ctx context.Context, sheet string) ([]string, [][]string, error) {
	if c.svc == nil {
		return nil, nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return splitValues(resp.Values)
}

// Replace writes the daily tab, then the hourly tab. The Sheets API has no
// cross-range transaction, so configuration problems are checked before
// anything is written.
func (c *Client) Replace(ctx context.Context, daily []core.DailyRecord, hourly []core.HourlyRecord) error {
	if len(hourly) > 0 && c.hourlySheet == "" {
		return errors.New("hourly sheet not configured")
	}
	if err := c.ReplaceDaily(ctx, daily); err != nil {
		return err
	}
	if c.hourlySheet == "" {
		return nil
	}
	return c.ReplaceHourly(ctx, hourly)
}

func (c *Client) ReplaceDaily(ctx context.Context, rows []core.DailyRecord) error {
	return c.replace(ctx, c.dailySheet, dailyValues(rows))
}

func (c *Client) ReplaceHourly(ctx context.Context, rows []core.HourlyRecord) error {
	if c.hourlySheet == "" {
		return errors.New("hourly sheet not configured")
	}
	return c.replace(ctx, c.hourlySheet, hourlyValues(rows))
}

func (c *Client) replace(ctx context.Context, sheet string, values [][]interface{}) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", sheet), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Sheet replaced", "sheet", sheet, "rows", len(values)-1)
	return nil
}
