package core

import (
	"fmt"
	"strconv"
)

// Record is implemented by DailyRecord and HourlyRecord.
type Record interface {
	Stamp() Calendar
	Rentals() Counts
}

// Measure names the count being summed during aggregation.
type Measure string

const (
	MeasureTotal      Measure = "total_count"
	MeasureCasual     Measure = "casual"
	MeasureRegistered Measure = "registered"
)

// Of extracts the measured count.
func (m Measure) Of(c Counts) (int64, error) {
	switch m {
	case MeasureTotal, "":
		return c.Total, nil
	case MeasureCasual:
		return c.Casual, nil
	case MeasureRegistered:
		return c.Registered, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownMeasure, m)
	}
}

// Dimension is a categorical group key with an explicit, ordered domain.
// Rows are partitioned by Key; every Domain value yields a group even when no
// row maps to it.
type Dimension[R Record] struct {
	Name   string
	Domain []string
	Key    func(R) string
}

// Group is one aggregated output row.
type Group struct {
	Keys []string `json:"keys"`
	Sum  int64    `json:"sum"`
}

// Groups is the ordered output of Aggregate.
type Groups []Group

// Lookup returns the sum for the given key combination, or 0 if absent.
func (g Groups) Lookup(keys ...string) int64 {
	for _, row := range g {
		if equalKeys(row.Keys, keys) {
			return row.Sum
		}
	}
	return 0
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DateRange is an inclusive [Start, End] calendar range.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether d lies in the inclusive range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Reversed reports whether Start is after End.
func (r DateRange) Reversed() bool {
	return r.Start.After(r.End)
}

// Filter returns the rows whose date lies in [start, end]. The input slice is
// never modified; a reversed range yields an empty result.
func Filter[R Record](rows []R, start, end Date) []R {
	rng := DateRange{Start: start, End: end}
	out := make([]R, 0)
	if rng.Reversed() {
		return out
	}
	for _, r := range rows {
		if rng.Contains(r.Stamp().Date) {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate sums measure over rows grouped by one or two dimensions. Output has
// one row per combination of domain values, ordered by declaration order of the
// dimensions and then by each domain's order. A row whose key is outside its
// dimension's domain is an ErrUnmappedCategory.
func Aggregate[R Record](rows []R, dims []Dimension[R], measure Measure) (Groups, error) {
	if len(dims) < 1 || len(dims) > 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGroupKeys, len(dims))
	}
	if _, err := measure.Of(Counts{}); err != nil {
		return nil, err
	}

	index := make([]map[string]int, len(dims))
	cells := 1
	for i, d := range dims {
		index[i] = make(map[string]int, len(d.Domain))
		for pos, v := range d.Domain {
			index[i][v] = pos
		}
		cells *= len(d.Domain)
	}

	sums := make([]int64, cells)
	for _, r := range rows {
		cell := 0
		for i, d := range dims {
			key := d.Key(r)
			pos, ok := index[i][key]
			if !ok {
				return nil, fmt.Errorf("%w: %s %q", ErrUnmappedCategory, d.Name, key)
			}
			cell = cell*len(d.Domain) + pos
		}
		v, _ := measure.Of(r.Rentals())
		sums[cell] += v
	}

	out := make(Groups, 0, cells)
	for cell, sum := range sums {
		keys := make([]string, len(dims))
		rem := cell
		for i := len(dims) - 1; i >= 0; i-- {
			n := len(dims[i].Domain)
			keys[i] = dims[i].Domain[rem%n]
			rem /= n
		}
		out = append(out, Group{Keys: keys, Sum: sum})
	}
	return out, nil
}

// Totals sums all counts of the rows.
func Totals[R Record](rows []R) Counts {
	var c Counts
	for _, r := range rows {
		c = c.Add(r.Rentals())
	}
	return c
}

// YearDimension groups by calendar year over the given years.
func YearDimension[R Record](years []int) Dimension[R] {
	domain := make([]string, len(years))
	for i, y := range years {
		domain[i] = strconv.Itoa(y)
	}
	return Dimension[R]{
		Name:   "year",
		Domain: domain,
		Key:    func(r R) string { return strconv.Itoa(r.Stamp().Year) },
	}
}

// MonthDimension groups by month label, Jan to Dec.
func MonthDimension[R Record]() Dimension[R] {
	return Dimension[R]{
		Name:   "month",
		Domain: labels(Months),
		Key:    func(r R) string { return string(r.Stamp().Month) },
	}
}

// SeasonDimension groups daily rows Spring to Winter.
func SeasonDimension() Dimension[DailyRecord] {
	return Dimension[DailyRecord]{
		Name:   "season",
		Domain: labels(Seasons),
		Key:    func(r DailyRecord) string { return string(r.Season) },
	}
}

// HourGroupDimension groups hourly rows Morning to Night.
func HourGroupDimension() Dimension[HourlyRecord] {
	return Dimension[HourlyRecord]{
		Name:   "hour_group",
		Domain: labels(HourGroups),
		Key:    func(r HourlyRecord) string { return string(r.HourGroup) },
	}
}

// WeatherDimension groups hourly rows by increasing weather severity.
func WeatherDimension() Dimension[HourlyRecord] {
	return Dimension[HourlyRecord]{
		Name:   "weather_situation",
		Domain: labels(Weathers),
		Key:    func(r HourlyRecord) string { return string(r.Weather) },
	}
}
