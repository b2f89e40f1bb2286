// Package dataset turns raw tabular input into validated records and holds the
// loaded snapshot served by the dashboard.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bikeshare/internal/core"
)

// column describes a field of a source table. Aliases accept the raw UCI
// column names next to the cleaned ones.
type column struct {
	name     string
	aliases  []string
	required bool
}

var (
	colDate       = column{name: "dteday", aliases: []string{"date"}, required: true}
	colHour       = column{name: "hour", aliases: []string{"hr"}, required: true}
	colSeason     = column{name: "season"}
	colWeather    = column{name: "weather_situation", aliases: []string{"weathersit"}, required: true}
	colCasual     = column{name: "casual", required: true}
	colRegistered = column{name: "registered", required: true}
	colTotal      = column{name: "total_count", aliases: []string{"cnt"}, required: true}
)

var (
	dailyColumns  = []column{colDate, colSeason, colCasual, colRegistered, colTotal}
	hourlyColumns = []column{colDate, colHour, colWeather, colCasual, colRegistered, colTotal}
)

// header maps resolved column names to their position in a row.
type header map[string]int

func resolveHeader(table string, names []string, cols []column) (header, error) {
	raw := make(map[string]int, len(names))
	for i, h := range names {
		raw[strings.ToLower(strings.TrimSpace(h))] = i
	}

	out := header{}
	var missing []string
	for _, c := range cols {
		idx, ok := raw[c.name]
		for _, alias := range c.aliases {
			if ok {
				break
			}
			idx, ok = raw[alias]
		}
		if ok {
			out[c.name] = idx
			continue
		}
		if c.required {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s table: %w: %s", table, core.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return out, nil
}

func (h header) get(row []string, col column) string {
	idx, ok := h[col.name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (h header) has(col column) bool {
	_, ok := h[col.name]
	return ok
}

// ParseDaily converts a header and data rows into daily records. Row numbers in
// errors count the header as line 1.
func ParseDaily(names []string, rows [][]string) ([]core.DailyRecord, error) {
	h, err := resolveHeader("daily", names, dailyColumns)
	if err != nil {
		return nil, err
	}

	out := make([]core.DailyRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseDailyRow(h, row)
		if err != nil {
			return nil, fmt.Errorf("daily table line %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseDailyRow(h header, row []string) (core.DailyRecord, error) {
	date, err := core.ParseDate(h.get(row, colDate))
	if err != nil {
		return core.DailyRecord{}, err
	}
	season := core.SeasonOf(date)
	if h.has(colSeason) {
		if season, err = core.ParseSeason(h.get(row, colSeason)); err != nil {
			return core.DailyRecord{}, err
		}
	}
	counts, err := parseCounts(h, row)
	if err != nil {
		return core.DailyRecord{}, err
	}
	rec := core.NewDailyRecord(date, season, counts)
	return rec, rec.Validate()
}

// ParseHourly converts a header and data rows into hourly records.
func ParseHourly(names []string, rows [][]string) ([]core.HourlyRecord, error) {
	h, err := resolveHeader("hourly", names, hourlyColumns)
	if err != nil {
		return nil, err
	}

	out := make([]core.HourlyRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseHourlyRow(h, row)
		if err != nil {
			return nil, fmt.Errorf("hourly table line %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseHourlyRow(h header, row []string) (core.HourlyRecord, error) {
	date, err := core.ParseDate(h.get(row, colDate))
	if err != nil {
		return core.HourlyRecord{}, err
	}
	hour, err := parseInt(colHour, h.get(row, colHour))
	if err != nil {
		return core.HourlyRecord{}, err
	}
	weather, err := core.ParseWeather(h.get(row, colWeather))
	if err != nil {
		return core.HourlyRecord{}, err
	}
	counts, err := parseCounts(h, row)
	if err != nil {
		return core.HourlyRecord{}, err
	}
	rec, err := core.NewHourlyRecord(date, int(hour), weather, counts)
	if err != nil {
		return core.HourlyRecord{}, err
	}
	return rec, rec.Validate()
}

func parseCounts(h header, row []string) (core.Counts, error) {
	var c core.Counts
	var err error
	if c.Casual, err = parseInt(colCasual, h.get(row, colCasual)); err != nil {
		return c, err
	}
	if c.Registered, err = parseInt(colRegistered, h.get(row, colRegistered)); err != nil {
		return c, err
	}
	if c.Total, err = parseInt(colTotal, h.get(row, colTotal)); err != nil {
		return c, err
	}
	return c, nil
}

// parseInt also accepts integral floats such as "985.0", which spreadsheet
// exports produce.
func parseInt(col column, s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid %s value %q", col.name, s)
	}
	return int64(f), nil
}

// ReadCSV splits a delimited stream into its header and data rows.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	names, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	// Strip a UTF-8 BOM left by spreadsheet exports.
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv rows: %w", err)
	}
	return names, rows, nil
}

// DecodeDailyCSV reads and parses a daily CSV stream.
func DecodeDailyCSV(r io.Reader) ([]core.DailyRecord, error) {
	names, rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return ParseDaily(names, rows)
}

// DecodeHourlyCSV reads and parses an hourly CSV stream.
func DecodeHourlyCSV(r io.Reader) ([]core.HourlyRecord, error) {
	names, rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return ParseHourly(names, rows)
}
