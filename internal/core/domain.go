package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the datasets and query parameters.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Counts holds the rental counts of a single record.
	Counts struct {
		Total      int64 `json:"total_count"`
		Casual     int64 `json:"casual"`
		Registered int64 `json:"registered"`
	}

	// Calendar carries the record date together with the fields derived from it.
	Calendar struct {
		Date  Date  `json:"date"`
		Year  int   `json:"year"`
		Month Month `json:"month"`
	}

	// DailyRecord is one row of the daily dataset.
	DailyRecord struct {
		Calendar
		Season Season `json:"season"`
		Counts
	}

	// HourlyRecord is one row of the hourly dataset.
	HourlyRecord struct {
		Calendar
		Hour      int       `json:"hour"`
		HourGroup HourGroup `json:"hour_group"`
		Weather   Weather   `json:"weather_situation"`
		Counts
	}
)

var (
	ErrMissingColumn    = errors.New("missing required column")
	ErrUnmappedCategory = errors.New("unmapped category")
	ErrCountMismatch    = errors.New("casual + registered does not match total_count")
	ErrNegativeCount    = errors.New("negative rental count")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidGroupKeys = errors.New("aggregation requires one or two group keys")
	ErrUnknownMeasure   = errors.New("unknown measure")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, optionally followed by a time of day which is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == ' ' || s[len(DateLayout)] == 'T') {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler so dates serialize as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether d and other are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// NewCalendar derives year and month label from the date.
func NewCalendar(d Date) Calendar {
	return Calendar{Date: d, Year: d.Year(), Month: MonthName(d)}
}

// Stamp returns the calendar fields of a record.
func (c Calendar) Stamp() Calendar {
	return c
}

// Rentals returns the counts of a record.
func (c Counts) Rentals() Counts {
	return c
}

// Add returns the element-wise sum of two counts.
func (c Counts) Add(other Counts) Counts {
	return Counts{
		Total:      c.Total + other.Total,
		Casual:     c.Casual + other.Casual,
		Registered: c.Registered + other.Registered,
	}
}

func (c Counts) Validate() error {
	if c.Total < 0 || c.Casual < 0 || c.Registered < 0 {
		return ErrNegativeCount
	}
	if c.Casual+c.Registered != c.Total {
		return fmt.Errorf("%w (%d + %d != %d)", ErrCountMismatch, c.Casual, c.Registered, c.Total)
	}
	return nil
}

// NewDailyRecord builds a daily record, deriving its calendar fields.
func NewDailyRecord(d Date, season Season, counts Counts) DailyRecord {
	return DailyRecord{Calendar: NewCalendar(d), Season: season, Counts: counts}
}

func (r DailyRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if !r.Season.Valid() {
		return fmt.Errorf("%w: season %q", ErrUnmappedCategory, r.Season)
	}
	return r.Counts.Validate()
}

// NewHourlyRecord builds an hourly record, deriving calendar fields and hour group.
func NewHourlyRecord(d Date, hour int, weather Weather, counts Counts) (HourlyRecord, error) {
	group, err := HourGroupOf(hour)
	if err != nil {
		return HourlyRecord{}, err
	}
	return HourlyRecord{
		Calendar:  NewCalendar(d),
		Hour:      hour,
		HourGroup: group,
		Weather:   weather,
		Counts:    counts,
	}, nil
}

func (r HourlyRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	group, err := HourGroupOf(r.Hour)
	if err != nil {
		return err
	}
	if group != r.HourGroup {
		return fmt.Errorf("%w: hour group %q for hour %d", ErrUnmappedCategory, r.HourGroup, r.Hour)
	}
	if !r.Weather.Valid() {
		return fmt.Errorf("%w: weather %q", ErrUnmappedCategory, r.Weather)
	}
	return r.Counts.Validate()
}
