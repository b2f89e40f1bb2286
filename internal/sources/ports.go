package sources

import (
	"context"

	"bikeshare/internal/core"
)

// Ports for dataset adapters.
type (
	DailyReader interface {
		// ReadDaily returns every row of the daily dataset.
		ReadDaily(ctx context.Context) ([]core.DailyRecord, error)
	}

	// HourlyReader returns the hourly dataset. Sources configured without an
	// hourly table return a nil slice and no error.
	HourlyReader interface {
		ReadHourly(ctx context.Context) ([]core.HourlyRecord, error)
	}

	Reader interface {
		DailyReader
		HourlyReader
	}

	// Writer replaces the stored dataset, used by the importer. Replace
	// swaps both tables together: on error neither table changes.
	Writer interface {
		Replace(ctx context.Context, daily []core.DailyRecord, hourly []core.HourlyRecord) error
		ReplaceDaily(ctx context.Context, rows []core.DailyRecord) error
		ReplaceHourly(ctx context.Context, rows []core.HourlyRecord) error
	}
)
