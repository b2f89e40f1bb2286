package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type DailyRental struct {
	Day        string
	Season     string
	Casual     int64
	Registered int64
	TotalCount int64
}

type HourlyRental struct {
	Day              string
	Hour             int64
	WeatherSituation string
	Casual           int64
	Registered       int64
	TotalCount       int64
}

type Import struct {
	ID         int64
	DailyRows  int64
	HourlyRows int64
	ImportedAt time.Time
}

const deleteDaily = `DELETE FROM daily_rentals`

func (q *Queries) DeleteDaily(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteDaily)
	return err
}

const insertDaily = `INSERT INTO daily_rentals (day, season, casual, registered, total_count)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertDaily(ctx context.Context, arg DailyRental) error {
	_, err := q.db.ExecContext(ctx, insertDaily, arg.Day, arg.Season, arg.Casual, arg.Registered, arg.TotalCount)
	return err
}

const listDaily = `SELECT day, season, casual, registered, total_count
FROM daily_rentals ORDER BY day`

func (q *Queries) ListDaily(ctx context.Context) ([]DailyRental, error) {
	rows, err := q.db.QueryContext(ctx, listDaily)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyRental
	for rows.Next() {
		var i DailyRental
		if err := rows.Scan(&i.Day, &i.Season, &i.Casual, &i.Registered, &i.TotalCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteHourly = `DELETE FROM hourly_rentals`

func (q *Queries) DeleteHourly(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteHourly)
	return err
}

const insertHourly = `INSERT INTO hourly_rentals (day, hour, weather_situation, casual, registered, total_count)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertHourly(ctx context.Context, arg HourlyRental) error {
	_, err := q.db.ExecContext(ctx, insertHourly, arg.Day, arg.Hour, arg.WeatherSituation, arg.Casual, arg.Registered, arg.TotalCount)
	return err
}

const listHourly = `SELECT day, hour, weather_situation, casual, registered, total_count
FROM hourly_rentals ORDER BY day, hour`

func (q *Queries) ListHourly(ctx context.Context) ([]HourlyRental, error) {
	rows, err := q.db.QueryContext(ctx, listHourly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HourlyRental
	for rows.Next() {
		var i HourlyRental
		if err := rows.Scan(&i.Day, &i.Hour, &i.WeatherSituation, &i.Casual, &i.Registered, &i.TotalCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createImport = `INSERT INTO imports (daily_rows, hourly_rows) VALUES (?, ?)
RETURNING id, daily_rows, hourly_rows, imported_at`

func (q *Queries) CreateImport(ctx context.Context, dailyRows, hourlyRows int64) (Import, error) {
	row := q.db.QueryRowContext(ctx, createImport, dailyRows, hourlyRows)
	return scanImport(row)
}

const lastImport = `SELECT id, daily_rows, hourly_rows, imported_at
FROM imports ORDER BY id DESC LIMIT 1`

func (q *Queries) LastImport(ctx context.Context) (Import, error) {
	row := q.db.QueryRowContext(ctx, lastImport)
	return scanImport(row)
}

func scanImport(row *sql.Row) (Import, error) {
	var i Import
	var at string
	if err := row.Scan(&i.ID, &i.DailyRows, &i.HourlyRows, &at); err != nil {
		return Import{}, err
	}
	i.ImportedAt = parseTimestamp(at)
	return i, nil
}

// parseTimestamp accepts both the CURRENT_TIMESTAMP text form and the RFC 3339
// form the driver produces when it decodes DATETIME columns itself.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
