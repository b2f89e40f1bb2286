package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(y, m, d int, casual, registered int64) DailyRecord {
	date := NewDate(y, m, d)
	return NewDailyRecord(date, SeasonOf(date), Counts{Total: casual + registered, Casual: casual, Registered: registered})
}

// twoYears builds one daily row per day from 2011-01-01 to 2012-12-31.
func twoYears() []DailyRecord {
	var rows []DailyRecord
	for d := NewDate(2011, 1, 1); !d.After(NewDate(2012, 12, 31)); d = (Date{Time: d.AddDate(0, 0, 1)}) {
		rows = append(rows, daily(d.Year(), int(d.Time.Month()), d.Day(), 1, 2))
	}
	return rows
}

func TestFilterInclusiveBounds(t *testing.T) {
	rows := twoYears()

	got := Filter(rows, NewDate(2012, 6, 1), NewDate(2012, 6, 30))
	require.Len(t, got, 30)
	for _, r := range got {
		assert.Equal(t, 2012, r.Year)
		assert.Equal(t, Jun, r.Month)
	}
}

func TestFilterSingleDay(t *testing.T) {
	rows := twoYears()
	d := NewDate(2011, 3, 15)

	got := Filter(rows, d, d)
	require.Len(t, got, 1)
	assert.True(t, got[0].Date.Equal(d))
}

func TestFilterReversedRangeIsEmpty(t *testing.T) {
	got := Filter(twoYears(), NewDate(2012, 1, 2), NewDate(2012, 1, 1))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterIdempotentAndDoesNotMutate(t *testing.T) {
	rows := twoYears()
	n := len(rows)
	start, end := NewDate(2011, 5, 1), NewDate(2011, 8, 31)

	once := Filter(rows, start, end)
	assert.Equal(t, once, Filter(once, start, end))
	assert.Equal(t, once, Filter(once, NewDate(2011, 1, 1), NewDate(2012, 12, 31)))
	assert.Len(t, rows, n)
	assert.True(t, rows[0].Date.Equal(NewDate(2011, 1, 1)))
}

func TestAggregateByYearMonthSingleNonZeroRow(t *testing.T) {
	rows := twoYears()
	june := Filter(rows, NewDate(2012, 6, 1), NewDate(2012, 6, 30))

	groups, err := Aggregate(june, []Dimension[DailyRecord]{
		YearDimension[DailyRecord]([]int{2011, 2012}),
		MonthDimension[DailyRecord](),
	}, MeasureTotal)
	require.NoError(t, err)
	require.Len(t, groups, 24)

	var nonZero []Group
	for _, g := range groups {
		if g.Sum != 0 {
			nonZero = append(nonZero, g)
		}
	}
	require.Len(t, nonZero, 1)
	assert.Equal(t, []string{"2012", "Jun"}, nonZero[0].Keys)
	assert.Equal(t, int64(90), nonZero[0].Sum)

	// Declaration order: year outermost, then Jan..Dec.
	assert.Equal(t, []string{"2011", "Jan"}, groups[0].Keys)
	assert.Equal(t, []string{"2011", "Feb"}, groups[1].Keys)
	assert.Equal(t, []string{"2012", "Dec"}, groups[23].Keys)
}

func TestAggregateEmptyTableBySeason(t *testing.T) {
	groups, err := Aggregate(nil, []Dimension[DailyRecord]{SeasonDimension()}, MeasureTotal)
	require.NoError(t, err)
	require.Len(t, groups, 4)
	for i, s := range Seasons {
		assert.Equal(t, []string{string(s)}, groups[i].Keys)
		assert.Zero(t, groups[i].Sum)
	}
}

func TestAggregateHourGroupScenario(t *testing.T) {
	weather, err := WeatherLabel(1)
	require.NoError(t, err)
	assert.Equal(t, Clear, weather)

	group, err := HourGroupOf(6)
	require.NoError(t, err)
	assert.Equal(t, Morning, group)

	rec, err := NewHourlyRecord(NewDate(2011, 1, 1), 6, weather, Counts{Total: 10, Casual: 2, Registered: 8})
	require.NoError(t, err)

	groups, err := Aggregate([]HourlyRecord{rec}, []Dimension[HourlyRecord]{HourGroupDimension()}, MeasureTotal)
	require.NoError(t, err)
	assert.Equal(t, Groups{
		{Keys: []string{"Morning"}, Sum: 10},
		{Keys: []string{"Afternoon"}, Sum: 0},
		{Keys: []string{"Evening"}, Sum: 0},
		{Keys: []string{"Night"}, Sum: 0},
	}, groups)
}

func TestAggregateMeasures(t *testing.T) {
	rows := []DailyRecord{daily(2011, 1, 1, 3, 7), daily(2011, 1, 2, 1, 1)}
	dims := []Dimension[DailyRecord]{MonthDimension[DailyRecord]()}

	for measure, want := range map[Measure]int64{MeasureTotal: 12, MeasureCasual: 4, MeasureRegistered: 8} {
		groups, err := Aggregate(rows, dims, measure)
		require.NoError(t, err)
		assert.Equal(t, want, groups.Lookup("Jan"), "measure %s", measure)
	}

	_, err := Aggregate(rows, dims, Measure("temp"))
	assert.ErrorIs(t, err, ErrUnknownMeasure)
}

func TestAggregateRejectsBadKeys(t *testing.T) {
	_, err := Aggregate[DailyRecord](nil, nil, MeasureTotal)
	assert.ErrorIs(t, err, ErrInvalidGroupKeys)

	three := []Dimension[DailyRecord]{SeasonDimension(), SeasonDimension(), SeasonDimension()}
	_, err = Aggregate[DailyRecord](nil, three, MeasureTotal)
	assert.ErrorIs(t, err, ErrInvalidGroupKeys)
}

func TestAggregateValueOutsideDomain(t *testing.T) {
	rows := []DailyRecord{daily(2013, 1, 1, 1, 1)}
	_, err := Aggregate(rows, []Dimension[DailyRecord]{YearDimension[DailyRecord]([]int{2011, 2012})}, MeasureTotal)
	assert.ErrorIs(t, err, ErrUnmappedCategory)
}

func TestTotals(t *testing.T) {
	assert.Equal(t, Counts{}, Totals[DailyRecord](nil))

	rows := twoYears()
	got := Totals(rows)
	assert.Equal(t, got.Casual+got.Registered, got.Total)
	assert.Equal(t, int64(len(rows)*3), got.Total)
}
