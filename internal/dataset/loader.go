package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bikeshare/internal/core"
	"bikeshare/internal/sources"
)

// Load reads both tables concurrently and builds a snapshot.
func Load(ctx context.Context, src sources.Reader) (*Dataset, error) {
	start := time.Now()

	var (
		daily  []core.DailyRecord
		hourly []core.HourlyRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := src.ReadDaily(gctx)
		if err != nil {
			return fmt.Errorf("read daily: %w", err)
		}
		daily = rows
		return nil
	})
	g.Go(func() error {
		rows, err := src.ReadHourly(gctx)
		if err != nil {
			return fmt.Errorf("read hourly: %w", err)
		}
		hourly = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds, err := New(daily, hourly)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Dataset loaded",
		"daily_rows", len(ds.Daily),
		"hourly_rows", len(ds.Hourly),
		"start", ds.Bounds.Start.String(),
		"end", ds.Bounds.End.String(),
		"duration_ms", time.Since(start).Milliseconds())
	return ds, nil
}
