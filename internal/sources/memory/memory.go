// Package memory is an in-process dataset store, used for development and
// tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
)

type Store struct {
	mu     sync.Mutex
	daily  []core.DailyRecord
	hourly []core.HourlyRecord
}

func New(daily []core.DailyRecord, hourly []core.HourlyRecord) *Store {
	s := &Store{}
	s.daily = append(s.daily, daily...)
	s.hourly = append(s.hourly, hourly...)
	return s
}

// NewFromFiles seeds the store from day.csv and hour.csv under base. Only a
// missing day.csv falls back to a generated sample; a missing hour.csv leaves
// the hourly table empty. Any other read or parse error is returned.
func NewFromFiles(base string) (*Store, error) {
	daily, err := readCSV(filepath.Join(base, "day.csv"), dataset.DecodeDailyCSV)
	if errors.Is(err, fs.ErrNotExist) {
		daily, hourly := Sample(core.NewDate(2011, 1, 1), 730)
		return New(daily, hourly), nil
	}
	if err != nil {
		return nil, err
	}

	hourly, err := readCSV(filepath.Join(base, "hour.csv"), dataset.DecodeHourlyCSV)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return New(daily, hourly), nil
}

func (s *Store) ReadDaily(_ context.Context) ([]core.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.DailyRecord(nil), s.daily...), nil
}

func (s *Store) ReadHourly(_ context.Context) ([]core.HourlyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.hourly) == 0 {
		return nil, nil
	}
	return append([]core.HourlyRecord(nil), s.hourly...), nil
}

// Replace validates both tables before swapping them under one lock.
func (s *Store) Replace(_ context.Context, daily []core.DailyRecord, hourly []core.HourlyRecord) error {
	for _, r := range daily {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	for _, r := range hourly {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily = append([]core.DailyRecord(nil), daily...)
	s.hourly = append([]core.HourlyRecord(nil), hourly...)
	return nil
}

func (s *Store) ReplaceDaily(_ context.Context, rows []core.DailyRecord) error {
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily = append([]core.DailyRecord(nil), rows...)
	return nil
}

func (s *Store) ReplaceHourly(_ context.Context, rows []core.HourlyRecord) error {
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hourly = append([]core.HourlyRecord(nil), rows...)
	return nil
}

// Sample generates days of deterministic daily rows starting at from, plus
// four hourly rows per day.
func Sample(from core.Date, days int) ([]core.DailyRecord, []core.HourlyRecord) {
	daily := make([]core.DailyRecord, 0, days)
	hourly := make([]core.HourlyRecord, 0, days*4)
	for i := 0; i < days; i++ {
		d := core.Date{Time: from.AddDate(0, 0, i)}
		var dayCounts core.Counts
		for slot, hour := range []int{8, 13, 18, 23} {
			c := core.Counts{
				Casual:     int64(10 + (i+slot*7)%40),
				Registered: int64(50 + (i*3+slot*11)%120),
			}
			c.Total = c.Casual + c.Registered
			weather := core.Weathers[(i+slot)%3]
			rec, _ := core.NewHourlyRecord(d, hour, weather, c)
			hourly = append(hourly, rec)
			dayCounts = dayCounts.Add(c)
		}
		daily = append(daily, core.NewDailyRecord(d, core.SeasonOf(d), dayCounts))
	}
	return daily, hourly
}

func readCSV[R any](path string, decode func(io.Reader) ([]R, error)) ([]R, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
