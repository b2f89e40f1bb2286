package backend

import (
	"context"
	"time"

	"bikeshare/internal/sources"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the created source and its optional capabilities.
type BackendResult struct {
	Reader sources.Reader
	// Writer is nil for read-only backends such as csv.
	Writer sources.Writer
	// Ping reports backend health; nil when there is nothing to probe.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// csv
	DailySource   string
	HourlySource  string
	SourceTimeout time.Duration

	// sqlite
	SQLiteDBPath string

	// sheets
	GoogleSpreadsheetID   string
	GoogleDailySheet      string
	GoogleHourlySheet     string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// memory
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
