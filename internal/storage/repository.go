package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bikeshare/internal/core"
	"bikeshare/internal/sources"

	_ "modernc.org/sqlite"
)

var (
	_ sources.Reader = (*SQLiteRepository)(nil)
	_ sources.Writer = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection, used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ReadDaily(ctx context.Context) ([]core.DailyRecord, error) {
	rows, err := r.queries.ListDaily(ctx)
	if err != nil {
		return nil, fmt.Errorf("list daily rentals: %w", err)
	}
	out := make([]core.DailyRecord, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.Day)
		if err != nil {
			return nil, err
		}
		season, err := core.ParseSeason(row.Season)
		if err != nil {
			return nil, err
		}
		out = append(out, core.NewDailyRecord(date, season, core.Counts{
			Total:      row.TotalCount,
			Casual:     row.Casual,
			Registered: row.Registered,
		}))
	}
	return out, nil
}

// ReadHourly returns nil when the hourly table is empty.
func (r *SQLiteRepository) ReadHourly(ctx context.Context) ([]core.HourlyRecord, error) {
	rows, err := r.queries.ListHourly(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hourly rentals: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]core.HourlyRecord, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.Day)
		if err != nil {
			return nil, err
		}
		weather, err := core.ParseWeather(row.WeatherSituation)
		if err != nil {
			return nil, err
		}
		rec, err := core.NewHourlyRecord(date, int(row.Hour), weather, core.Counts{
			Total:      row.TotalCount,
			Casual:     row.Casual,
			Registered: row.Registered,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Replace swaps both tables in one transaction, so a failed import never
// leaves new daily rows next to old hourly ones.
func (r *SQLiteRepository) Replace(ctx context.Context, daily []core.DailyRecord, hourly []core.HourlyRecord) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := replaceDaily(ctx, q, daily); err != nil {
			return err
		}
		return replaceHourly(ctx, q, hourly)
	})
}

// ReplaceDaily swaps the daily table contents in one transaction.
func (r *SQLiteRepository) ReplaceDaily(ctx context.Context, rows []core.DailyRecord) error {
	return r.inTx(ctx, func(q *Queries) error {
		return replaceDaily(ctx, q, rows)
	})
}

// ReplaceHourly swaps the hourly table contents in one transaction.
func (r *SQLiteRepository) ReplaceHourly(ctx context.Context, rows []core.HourlyRecord) error {
	return r.inTx(ctx, func(q *Queries) error {
		return replaceHourly(ctx, q, rows)
	})
}

func replaceDaily(ctx context.Context, q *Queries, rows []core.DailyRecord) error {
	if err := q.DeleteDaily(ctx); err != nil {
		return fmt.Errorf("clear daily rentals: %w", err)
	}
	for _, rec := range rows {
		err := q.InsertDaily(ctx, DailyRental{
			Day:        rec.Date.String(),
			Season:     string(rec.Season),
			Casual:     rec.Casual,
			Registered: rec.Registered,
			TotalCount: rec.Total,
		})
		if err != nil {
			return fmt.Errorf("insert daily %s: %w", rec.Date, err)
		}
	}
	return nil
}

func replaceHourly(ctx context.Context, q *Queries, rows []core.HourlyRecord) error {
	if err := q.DeleteHourly(ctx); err != nil {
		return fmt.Errorf("clear hourly rentals: %w", err)
	}
	for _, rec := range rows {
		err := q.InsertHourly(ctx, HourlyRental{
			Day:              rec.Date.String(),
			Hour:             int64(rec.Hour),
			WeatherSituation: string(rec.Weather),
			Casual:           rec.Casual,
			Registered:       rec.Registered,
			TotalCount:       rec.Total,
		})
		if err != nil {
			return fmt.Errorf("insert hourly %s %02d: %w", rec.Date, rec.Hour, err)
		}
	}
	return nil
}

// RecordImport stores an import log entry and returns it.
func (r *SQLiteRepository) RecordImport(ctx context.Context, dailyRows, hourlyRows int) (Import, error) {
	imp, err := r.queries.CreateImport(ctx, int64(dailyRows), int64(hourlyRows))
	if err != nil {
		return Import{}, fmt.Errorf("record import: %w", err)
	}
	slog.InfoContext(ctx, "Import recorded",
		"import_id", imp.ID,
		"daily_rows", imp.DailyRows,
		"hourly_rows", imp.HourlyRows)
	return imp, nil
}

// LastImport returns the most recent import, or ok=false when none exists.
func (r *SQLiteRepository) LastImport(ctx context.Context) (Import, bool, error) {
	imp, err := r.queries.LastImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, false, nil
	}
	if err != nil {
		return Import{}, false, fmt.Errorf("last import: %w", err)
	}
	return imp, true, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
