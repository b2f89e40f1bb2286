// Package csvfile reads the daily and hourly tables from CSV files on disk or
// from http(s) URLs.
package csvfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
)

type Source struct {
	DailyPath  string
	HourlyPath string
	HTTPClient *http.Client
}

func New(dailyPath, hourlyPath string, timeout time.Duration) *Source {
	return &Source{
		DailyPath:  dailyPath,
		HourlyPath: hourlyPath,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (s *Source) ReadDaily(ctx context.Context) ([]core.DailyRecord, error) {
	if s.DailyPath == "" {
		return nil, fmt.Errorf("daily source not configured")
	}
	rc, err := s.open(ctx, s.DailyPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return dataset.DecodeDailyCSV(rc)
}

// ReadHourly returns nil when no hourly path is configured.
func (s *Source) ReadHourly(ctx context.Context) ([]core.HourlyRecord, error) {
	if s.HourlyPath == "" {
		return nil, nil
	}
	rc, err := s.open(ctx, s.HourlyPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return dataset.DecodeHourlyCSV(rc)
}

func (s *Source) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isURL(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", location, resp.StatusCode)
	}
	return resp.Body, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
