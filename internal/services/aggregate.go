package services

import (
	"errors"
	"fmt"
	"slices"

	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
)

var (
	ErrUnknownDataset   = errors.New("unknown dataset")
	ErrUnknownDimension = errors.New("unknown group key")
	ErrNoHourlyData     = errors.New("hourly dataset not loaded")
)

const (
	DatasetDaily  = "daily"
	DatasetHourly = "hourly"
)

// AggregateQuery is a generic grouped sum over one of the tables.
type AggregateQuery struct {
	Dataset string
	By      []string
	Measure core.Measure
	Range   core.DateRange
}

// AggregateResult echoes the resolved query next to its groups.
type AggregateResult struct {
	Dataset string         `json:"dataset"`
	By      []string       `json:"by"`
	Measure core.Measure   `json:"measure"`
	Range   core.DateRange `json:"range"`
	Groups  core.Groups    `json:"groups"`
}

// DimensionNames lists the valid group keys of a table, in display order.
func DimensionNames(table string) []string {
	switch table {
	case DatasetDaily:
		return []string{"year", "month", "season"}
	case DatasetHourly:
		return []string{"year", "month", "hour_group", "weather_situation"}
	default:
		return nil
	}
}

// Aggregate runs q against the current snapshot.
func (s *DashboardService) Aggregate(q AggregateQuery) (AggregateResult, error) {
	ds, err := s.Snapshot()
	if err != nil {
		return AggregateResult{}, err
	}
	return RunAggregate(ds, q)
}

// RunAggregate runs q against ds.
func RunAggregate(ds *dataset.Dataset, q AggregateQuery) (AggregateResult, error) {
	if q.Measure == "" {
		q.Measure = core.MeasureTotal
	}
	res := AggregateResult{Dataset: q.Dataset, By: q.By, Measure: q.Measure, Range: q.Range}

	var err error
	switch q.Dataset {
	case DatasetDaily:
		var dims []core.Dimension[core.DailyRecord]
		if dims, err = dailyDimensions(q.By, ds.Years); err != nil {
			return AggregateResult{}, err
		}
		rows := core.Filter(ds.Daily, q.Range.Start, q.Range.End)
		res.Groups, err = core.Aggregate(rows, dims, q.Measure)
	case DatasetHourly:
		if !ds.HasHourly() {
			return AggregateResult{}, ErrNoHourlyData
		}
		var dims []core.Dimension[core.HourlyRecord]
		if dims, err = hourlyDimensions(q.By, ds.Years); err != nil {
			return AggregateResult{}, err
		}
		rows := core.Filter(ds.Hourly, q.Range.Start, q.Range.End)
		res.Groups, err = core.Aggregate(rows, dims, q.Measure)
	default:
		return AggregateResult{}, fmt.Errorf("%w %q", ErrUnknownDataset, q.Dataset)
	}
	if err != nil {
		return AggregateResult{}, err
	}
	return res, nil
}

func dailyDimensions(keys []string, years []int) ([]core.Dimension[core.DailyRecord], error) {
	if err := checkKeys(DatasetDaily, keys); err != nil {
		return nil, err
	}
	out := make([]core.Dimension[core.DailyRecord], 0, len(keys))
	for _, k := range keys {
		switch k {
		case "year":
			out = append(out, core.YearDimension[core.DailyRecord](years))
		case "month":
			out = append(out, core.MonthDimension[core.DailyRecord]())
		case "season":
			out = append(out, core.SeasonDimension())
		}
	}
	return out, nil
}

func hourlyDimensions(keys []string, years []int) ([]core.Dimension[core.HourlyRecord], error) {
	if err := checkKeys(DatasetHourly, keys); err != nil {
		return nil, err
	}
	out := make([]core.Dimension[core.HourlyRecord], 0, len(keys))
	for _, k := range keys {
		switch k {
		case "year":
			out = append(out, core.YearDimension[core.HourlyRecord](years))
		case "month":
			out = append(out, core.MonthDimension[core.HourlyRecord]())
		case "hour_group":
			out = append(out, core.HourGroupDimension())
		case "weather_situation":
			out = append(out, core.WeatherDimension())
		}
	}
	return out, nil
}

func checkKeys(table string, keys []string) error {
	if len(keys) < 1 || len(keys) > 2 {
		return fmt.Errorf("%w: got %d", core.ErrInvalidGroupKeys, len(keys))
	}
	if len(keys) == 2 && keys[0] == keys[1] {
		return fmt.Errorf("%w: %q given twice", core.ErrInvalidGroupKeys, keys[0])
	}
	valid := DimensionNames(table)
	for _, k := range keys {
		if !slices.Contains(valid, k) {
			return fmt.Errorf("%w %q for %s dataset", ErrUnknownDimension, k, table)
		}
	}
	return nil
}
