package dataset

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bikeshare/internal/core"
)

var (
	ErrNoRows       = errors.New("daily dataset has no rows")
	ErrDuplicateRow = errors.New("duplicate row")
)

// Dataset is an immutable, validated snapshot of both tables.
type Dataset struct {
	Daily  []core.DailyRecord
	Hourly []core.HourlyRecord
	// Bounds spans the daily table and constrains the date selector.
	Bounds core.DateRange
	// Years lists every calendar year between the first and last record,
	// used as the year domain of grouped charts.
	Years    []int
	LoadedAt time.Time
}

// New validates, copies and sorts the input rows.
func New(daily []core.DailyRecord, hourly []core.HourlyRecord) (*Dataset, error) {
	if len(daily) == 0 {
		return nil, ErrNoRows
	}
	for i, r := range daily {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("daily row %d (%s): %w", i, r.Date, err)
		}
	}
	for i, r := range hourly {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("hourly row %d (%s %02d:00): %w", i, r.Date, r.Hour, err)
		}
	}

	ds := &Dataset{
		Daily:    append([]core.DailyRecord(nil), daily...),
		Hourly:   append([]core.HourlyRecord(nil), hourly...),
		LoadedAt: time.Now(),
	}
	sort.SliceStable(ds.Daily, func(i, j int) bool {
		return ds.Daily[i].Date.Before(ds.Daily[j].Date)
	})
	sort.SliceStable(ds.Hourly, func(i, j int) bool {
		a, b := ds.Hourly[i], ds.Hourly[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Hour < b.Hour
	})

	for i := 1; i < len(ds.Daily); i++ {
		if ds.Daily[i].Date.Equal(ds.Daily[i-1].Date) {
			return nil, fmt.Errorf("daily table: %w for %s", ErrDuplicateRow, ds.Daily[i].Date)
		}
	}
	for i := 1; i < len(ds.Hourly); i++ {
		a, b := ds.Hourly[i-1], ds.Hourly[i]
		if a.Date.Equal(b.Date) && a.Hour == b.Hour {
			return nil, fmt.Errorf("hourly table: %w for %s %02d:00", ErrDuplicateRow, b.Date, b.Hour)
		}
	}

	ds.Bounds = core.DateRange{Start: ds.Daily[0].Date, End: ds.Daily[len(ds.Daily)-1].Date}

	first, last := ds.Bounds.Start.Year(), ds.Bounds.End.Year()
	if n := len(ds.Hourly); n > 0 {
		first = min(first, ds.Hourly[0].Year)
		last = max(last, ds.Hourly[n-1].Year)
	}
	for y := first; y <= last; y++ {
		ds.Years = append(ds.Years, y)
	}
	return ds, nil
}

// HasHourly reports whether the hourly table was loaded.
func (d *Dataset) HasHourly() bool {
	return len(d.Hourly) > 0
}

// Holder owns the current snapshot; reloads swap it whole.
type Holder struct {
	mu      sync.RWMutex
	current *Dataset
	version int64
}

func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active snapshot, or nil before the first load.
func (h *Holder) Current() *Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Version increases on every Replace.
func (h *Holder) Version() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Snapshot returns the active snapshot together with its version, read
// under one lock so the pair always matches.
func (h *Holder) Snapshot() (*Dataset, int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, h.version
}

// Replace installs a new snapshot and returns the new version.
func (h *Holder) Replace(ds *Dataset) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = ds
	h.version++
	return h.version
}
