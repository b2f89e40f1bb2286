package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"bikeshare/internal/cache"
	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
	"bikeshare/internal/metrics"
)

// ErrNotLoaded is returned before the first dataset load completes.
var ErrNotLoaded = errors.New("dataset not loaded")

// DashboardService builds dashboards from the current snapshot.
type DashboardService struct {
	holder  *dataset.Holder
	cache   cache.Cache[core.Dashboard]
	metrics metrics.Recorder
}

func NewDashboardService(holder *dataset.Holder, c cache.Cache[core.Dashboard], rec metrics.Recorder) *DashboardService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &DashboardService{holder: holder, cache: c, metrics: rec}
}

// Snapshot returns the current dataset or ErrNotLoaded.
func (s *DashboardService) Snapshot() (*dataset.Dataset, error) {
	ds := s.holder.Current()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return ds, nil
}

// ResolveRange parses YYYY-MM-DD bounds. Empty or unparsable values fall back
// to the dataset bounds so the default selection is the full span.
func (s *DashboardService) ResolveRange(start, end string) (core.DateRange, error) {
	ds, err := s.Snapshot()
	if err != nil {
		return core.DateRange{}, err
	}
	rng := ds.Bounds
	if d, err := core.ParseDate(start); err == nil {
		rng.Start = d
	}
	if d, err := core.ParseDate(end); err == nil {
		rng.End = d
	}
	return rng, nil
}

// Build returns the dashboard for rng, served from cache when the same range
// was built against the same snapshot.
func (s *DashboardService) Build(ctx context.Context, rng core.DateRange) (core.Dashboard, error) {
	start := time.Now()
	ds, version := s.holder.Snapshot()
	if ds == nil {
		return core.Dashboard{}, ErrNotLoaded
	}

	key := cacheKey(version, rng)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			s.metrics.ObserveDashboardBuild(true, time.Since(start))
			return d, nil
		}
	}

	d, err := BuildDashboard(ds, rng)
	if err != nil {
		return core.Dashboard{}, err
	}
	if s.cache != nil {
		s.cache.Set(key, d)
	}
	s.metrics.ObserveDashboardBuild(false, time.Since(start))

	slog.DebugContext(ctx, "Dashboard built",
		"start", rng.Start.String(),
		"end", rng.End.String(),
		"daily_points", len(d.Daily),
		"duration_ms", time.Since(start).Milliseconds())
	return d, nil
}

func cacheKey(version int64, rng core.DateRange) string {
	return strconv.FormatInt(version, 10) + ":" + rng.Start.String() + ":" + rng.End.String()
}

// BuildDashboard computes every chart of the dashboard for rng.
func BuildDashboard(ds *dataset.Dataset, rng core.DateRange) (core.Dashboard, error) {
	daily := core.Filter(ds.Daily, rng.Start, rng.End)
	hourly := core.Filter(ds.Hourly, rng.Start, rng.End)

	d := core.Dashboard{
		Range:         rng,
		Bounds:        ds.Bounds,
		Years:         ds.Years,
		Empty:         len(daily) == 0,
		HasHourlyData: ds.HasHourly(),
		UsersCombined: core.Totals(daily),
	}

	// Metric cards prefer the hourly table, which is the finer grained count.
	if d.HasHourlyData {
		d.Metrics = core.Totals(hourly)
	} else {
		d.Metrics = d.UsersCombined
	}

	d.Daily = make([]core.DailyPoint, len(daily))
	for i, r := range daily {
		d.Daily[i] = core.DailyPoint{Date: r.Date, Total: r.Total}
	}

	var err error
	years := core.YearDimension[core.DailyRecord](ds.Years)
	d.MonthlyByYear, err = core.Aggregate(daily, []core.Dimension[core.DailyRecord]{years, core.MonthDimension[core.DailyRecord]()}, core.MeasureTotal)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("monthly rentals: %w", err)
	}
	d.SeasonByYear, err = core.Aggregate(daily, []core.Dimension[core.DailyRecord]{years, core.SeasonDimension()}, core.MeasureTotal)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("seasonal rentals: %w", err)
	}

	if d.HasHourlyData {
		d.ByHourGroup, err = core.Aggregate(hourly, []core.Dimension[core.HourlyRecord]{core.HourGroupDimension()}, core.MeasureTotal)
		if err != nil {
			return core.Dashboard{}, fmt.Errorf("rentals by part of day: %w", err)
		}
		d.ByWeather, err = core.Aggregate(hourly, []core.Dimension[core.HourlyRecord]{core.WeatherDimension()}, core.MeasureTotal)
		if err != nil {
			return core.Dashboard{}, fmt.Errorf("rentals by weather: %w", err)
		}
	}

	d.UsersByYear, err = usersByYear(daily, ds.Years)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("users distribution: %w", err)
	}
	return d, nil
}

// usersByYear returns casual and registered totals for each year that has at
// least one selected row.
func usersByYear(rows []core.DailyRecord, years []int) ([]core.YearUsers, error) {
	dims := []core.Dimension[core.DailyRecord]{core.YearDimension[core.DailyRecord](years)}
	casual, err := core.Aggregate(rows, dims, core.MeasureCasual)
	if err != nil {
		return nil, err
	}
	registered, err := core.Aggregate(rows, dims, core.MeasureRegistered)
	if err != nil {
		return nil, err
	}

	present := make(map[int]bool, len(years))
	for _, r := range rows {
		present[r.Year] = true
	}

	out := make([]core.YearUsers, 0, len(present))
	for i, y := range years {
		if !present[y] {
			continue
		}
		out = append(out, core.YearUsers{Year: y, Casual: casual[i].Sum, Registered: registered[i].Sum})
	}
	return out, nil
}
