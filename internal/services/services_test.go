package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare/internal/amqp"
	"bikeshare/internal/cache"
	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
	"bikeshare/internal/sources/memory"
	"bikeshare/internal/storage"
)

func day(y, m, d int, casual, registered int64) core.DailyRecord {
	date := core.NewDate(y, m, d)
	return core.NewDailyRecord(date, core.SeasonOf(date), core.Counts{Total: casual + registered, Casual: casual, Registered: registered})
}

func hour(t *testing.T, y, m, d, h int, w core.Weather, casual, registered int64) core.HourlyRecord {
	t.Helper()
	r, err := core.NewHourlyRecord(core.NewDate(y, m, d), h, w, core.Counts{Total: casual + registered, Casual: casual, Registered: registered})
	require.NoError(t, err)
	return r
}

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	daily := []core.DailyRecord{
		day(2011, 1, 1, 10, 20),
		day(2011, 7, 1, 5, 5),
		day(2012, 6, 1, 1, 2),
		day(2012, 6, 2, 1, 2),
	}
	hourly := []core.HourlyRecord{
		hour(t, 2011, 1, 1, 8, core.Clear, 2, 3),
		hour(t, 2011, 1, 1, 23, core.Misty, 1, 1),
		hour(t, 2012, 6, 1, 13, core.Clear, 4, 4),
	}
	ds, err := dataset.New(daily, hourly)
	require.NoError(t, err)
	return ds
}

func TestBuildDashboardFullRange(t *testing.T) {
	ds := fixture(t)
	d, err := BuildDashboard(ds, ds.Bounds)
	require.NoError(t, err)

	assert.False(t, d.Empty)
	assert.Equal(t, []int{2011, 2012}, d.Years)
	assert.Len(t, d.Daily, 4)
	assert.Equal(t, int64(30), d.Daily[0].Total)

	// Metric cards come from the hourly table.
	assert.Equal(t, core.Counts{Total: 15, Casual: 7, Registered: 8}, d.Metrics)
	// Users distribution comes from the daily table.
	assert.Equal(t, core.Counts{Total: 46, Casual: 17, Registered: 29}, d.UsersCombined)

	assert.Len(t, d.MonthlyByYear, 24)
	assert.Equal(t, int64(30), d.MonthlyByYear.Lookup("2011", "Jan"))
	assert.Equal(t, int64(6), d.MonthlyByYear.Lookup("2012", "Jun"))
	assert.Len(t, d.SeasonByYear, 8)
	assert.Equal(t, int64(10), d.SeasonByYear.Lookup("2011", "Summer"))

	require.Len(t, d.ByHourGroup, 4)
	assert.Equal(t, []string{"Morning"}, d.ByHourGroup[0].Keys)
	assert.Equal(t, int64(5), d.ByHourGroup.Lookup("Morning"))
	assert.Equal(t, int64(8), d.ByHourGroup.Lookup("Afternoon"))
	assert.Equal(t, int64(2), d.ByHourGroup.Lookup("Night"))
	require.Len(t, d.ByWeather, 4)
	assert.Equal(t, int64(0), d.ByWeather.Lookup("Heavy_RainSnow"))

	require.Len(t, d.UsersByYear, 2)
	assert.Equal(t, core.YearUsers{Year: 2012, Casual: 2, Registered: 4}, d.UsersByYear[1])
}

func TestBuildDashboardEmptySelection(t *testing.T) {
	ds := fixture(t)
	rng := core.DateRange{Start: core.NewDate(2011, 3, 1), End: core.NewDate(2011, 3, 31)}
	d, err := BuildDashboard(ds, rng)
	require.NoError(t, err)

	assert.True(t, d.Empty)
	assert.Empty(t, d.Daily)
	assert.Empty(t, d.UsersByYear)
	assert.Len(t, d.SeasonByYear, 8, "zero groups still present")
	assert.Equal(t, int64(0), d.SeasonByYear.Lookup("2011", "Spring"))
}

func TestBuildDashboardWithoutHourly(t *testing.T) {
	ds, err := dataset.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)
	require.NoError(t, err)
	d, err := BuildDashboard(ds, ds.Bounds)
	require.NoError(t, err)

	assert.False(t, d.HasHourlyData)
	assert.Nil(t, d.ByHourGroup)
	assert.Equal(t, int64(2), d.Metrics.Total)
}

func TestDashboardServiceCachesPerVersion(t *testing.T) {
	holder := dataset.NewHolder()
	svc := NewDashboardService(holder, cache.NewLRUCache[core.Dashboard](10, time.Minute), nil)

	_, err := svc.Build(context.Background(), core.DateRange{})
	require.ErrorIs(t, err, ErrNotLoaded)

	holder.Replace(fixture(t))
	rng, err := svc.ResolveRange("", "not-a-date")
	require.NoError(t, err)
	assert.Equal(t, "2011-01-01", rng.Start.String())
	assert.Equal(t, "2012-06-02", rng.End.String())

	first, err := svc.Build(context.Background(), rng)
	require.NoError(t, err)
	second, err := svc.Build(context.Background(), rng)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	holder.Replace(func() *dataset.Dataset {
		ds, err := dataset.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)
		require.NoError(t, err)
		return ds
	}())
	third, err := svc.Build(context.Background(), rng)
	require.NoError(t, err)
	assert.Len(t, third.Daily, 1, "new snapshot must not be served from the old cache entry")
}

func TestRunAggregate(t *testing.T) {
	ds := fixture(t)

	res, err := RunAggregate(ds, AggregateQuery{Dataset: DatasetDaily, By: []string{"season"}, Measure: core.MeasureCasual, Range: ds.Bounds})
	require.NoError(t, err)
	assert.Equal(t, core.MeasureCasual, res.Measure)
	require.Len(t, res.Groups, 4)
	assert.Equal(t, int64(10), res.Groups.Lookup("Winter"))
	assert.Equal(t, int64(7), res.Groups.Lookup("Summer"))

	res, err = RunAggregate(ds, AggregateQuery{Dataset: DatasetHourly, By: []string{"year", "weather_situation"}, Range: ds.Bounds})
	require.NoError(t, err)
	assert.Equal(t, core.MeasureTotal, res.Measure)
	assert.Len(t, res.Groups, 8)
	assert.Equal(t, int64(8), res.Groups.Lookup("2012", "Clear"))
}

func TestRunAggregateErrors(t *testing.T) {
	ds := fixture(t)
	tests := []struct {
		name string
		q    AggregateQuery
		want error
	}{
		{"unknown dataset", AggregateQuery{Dataset: "weekly", By: []string{"year"}}, ErrUnknownDataset},
		{"hourly key on daily", AggregateQuery{Dataset: DatasetDaily, By: []string{"hour_group"}}, ErrUnknownDimension},
		{"no keys", AggregateQuery{Dataset: DatasetDaily}, core.ErrInvalidGroupKeys},
		{"three keys", AggregateQuery{Dataset: DatasetHourly, By: []string{"year", "month", "hour_group"}}, core.ErrInvalidGroupKeys},
		{"duplicate key", AggregateQuery{Dataset: DatasetDaily, By: []string{"year", "year"}}, core.ErrInvalidGroupKeys},
		{"bad measure", AggregateQuery{Dataset: DatasetDaily, By: []string{"year"}, Measure: "temp"}, core.ErrUnknownMeasure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.q.Range = ds.Bounds
			_, err := RunAggregate(ds, tt.q)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	daily, err := dataset.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)
	require.NoError(t, err)
	_, err = RunAggregate(daily, AggregateQuery{Dataset: DatasetHourly, By: []string{"hour_group"}})
	assert.ErrorIs(t, err, ErrNoHourlyData)
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge() { p.n++ }

func TestReloader(t *testing.T) {
	store := memory.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)
	holder := dataset.NewHolder()
	purger := &countingPurger{}
	r := NewReloader(store, holder, purger, nil)

	_, err := r.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), holder.Version())
	assert.Equal(t, 1, purger.n)

	// A failed reload keeps the previous snapshot.
	require.NoError(t, store.ReplaceDaily(context.Background(), nil))
	_, err = r.Reload(context.Background())
	require.ErrorIs(t, err, dataset.ErrNoRows)
	assert.Equal(t, int64(1), holder.Version())
	assert.Len(t, holder.Current().Daily, 1)
}

type fakePublisher struct {
	msgs []*amqp.DatasetImportedMessage
	err  error
}

func (p *fakePublisher) PublishDatasetImported(_ context.Context, msg *amqp.DatasetImportedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestImporterWritesAndPublishes(t *testing.T) {
	ds := fixture(t)
	src := memory.New(ds.Daily, ds.Hourly)
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bikeshare.db"))
	require.NoError(t, err)
	defer repo.Close()
	pub := &fakePublisher{}

	res, err := NewImporter(src, repo, pub).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.DailyRows)
	assert.Equal(t, 3, res.HourlyRows)
	assert.True(t, res.Published)
	assert.NotZero(t, res.ImportID)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, res.ImportID, pub.msgs[0].ImportID)
	assert.Equal(t, "2011-01-01", pub.msgs[0].Start)
	assert.Equal(t, "2012-06-02", pub.msgs[0].End)

	stored, err := repo.ReadHourly(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestImporterRejectsInvalidSourceBeforeWriting(t *testing.T) {
	dst := memory.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)
	bad := day(2011, 2, 1, 1, 1)
	bad.Total = 7
	src := memory.New([]core.DailyRecord{bad}, nil)

	_, err := NewImporter(src, dst, nil).Run(context.Background())
	require.ErrorIs(t, err, core.ErrCountMismatch)

	rows, _ := dst.ReadDaily(context.Background())
	assert.Len(t, rows, 1)
}

func TestImporterPublishFailureIsNotFatal(t *testing.T) {
	src := memory.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)
	pub := &fakePublisher{err: errors.New("channel closed")}
	res, err := NewImporter(src, memory.New(nil, nil), pub).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Published)
}

func TestImporterDailyOnlyClearsHourly(t *testing.T) {
	ds := fixture(t)
	dst := memory.New(ds.Daily, ds.Hourly)
	src := memory.New([]core.DailyRecord{day(2011, 1, 1, 1, 1)}, nil)

	res, err := NewImporter(src, dst, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.HourlyRows)

	hourly, err := dst.ReadHourly(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hourly)
}

// failingWriter rejects every Replace, standing in for a store that fails
// part way through writing.
type failingWriter struct {
	*memory.Store
	err error
}

func (w failingWriter) Replace(context.Context, []core.DailyRecord, []core.HourlyRecord) error {
	return w.err
}

func TestImporterFailedWriteRecordsNothing(t *testing.T) {
	old := memory.New([]core.DailyRecord{day(2010, 1, 1, 1, 1)}, nil)
	dst := failingWriter{Store: old, err: errors.New("disk full")}
	src := memory.New([]core.DailyRecord{day(2011, 1, 1, 2, 2)}, nil)
	pub := &fakePublisher{}

	_, err := NewImporter(src, dst, pub).Run(context.Background())
	require.ErrorIs(t, err, dst.err)
	assert.Empty(t, pub.msgs, "a failed import must not be announced")

	rows, err := old.ReadDaily(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2010-01-01", rows[0].Date.String())
}
