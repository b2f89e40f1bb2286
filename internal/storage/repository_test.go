package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "bikeshare.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReplaceAndReadDaily(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []core.DailyRecord{
		core.NewDailyRecord(core.NewDate(2011, 1, 2), core.Winter, core.Counts{Total: 801, Casual: 131, Registered: 670}),
		core.NewDailyRecord(core.NewDate(2011, 1, 1), core.Winter, core.Counts{Total: 985, Casual: 331, Registered: 654}),
	}
	require.NoError(t, repo.ReplaceDaily(ctx, rows))

	got, err := repo.ReadDaily(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2011-01-01", got[0].Date.String())
	assert.Equal(t, core.Winter, got[0].Season)
	assert.Equal(t, int64(985), got[0].Total)

	// A second import replaces, never appends.
	require.NoError(t, repo.ReplaceDaily(ctx, rows[:1]))
	got, err = repo.ReadDaily(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReplaceDailyRollsBackOnConstraint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	good := core.NewDailyRecord(core.NewDate(2011, 1, 1), core.Winter, core.Counts{Total: 3, Casual: 1, Registered: 2})
	require.NoError(t, repo.ReplaceDaily(ctx, []core.DailyRecord{good}))

	dup := []core.DailyRecord{good, good}
	require.Error(t, repo.ReplaceDaily(ctx, dup))

	got, err := repo.ReadDaily(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "failed import must leave previous rows intact")
}

func TestReplaceAndReadHourly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.ReadHourly(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	rec, err := core.NewHourlyRecord(core.NewDate(2011, 1, 1), 18, core.HeavyRainSnow, core.Counts{Total: 4, Casual: 1, Registered: 3})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceHourly(ctx, []core.HourlyRecord{rec}))

	got, err := repo.ReadHourly(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Evening, got[0].HourGroup)
	assert.Equal(t, core.HeavyRainSnow, got[0].Weather)
}

func TestImportLog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := repo.LastImport(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := repo.RecordImport(ctx, 731, 17379)
	require.NoError(t, err)
	second, err := repo.RecordImport(ctx, 10, 0)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	last, ok, err := repo.LastImport(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, last.ID)
	assert.Equal(t, int64(10), last.DailyRows)
	assert.False(t, last.ImportedAt.IsZero())
}

func TestReplaceIsAtomicAcrossTables(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	oldDay := core.NewDailyRecord(core.NewDate(2010, 1, 1), core.Winter, core.Counts{Total: 3, Casual: 1, Registered: 2})
	oldHour, err := core.NewHourlyRecord(core.NewDate(2010, 1, 1), 8, core.Clear, core.Counts{Total: 3, Casual: 1, Registered: 2})
	require.NoError(t, err)
	require.NoError(t, repo.Replace(ctx, []core.DailyRecord{oldDay}, []core.HourlyRecord{oldHour}))

	newDay := core.NewDailyRecord(core.NewDate(2011, 1, 1), core.Winter, core.Counts{Total: 2, Casual: 1, Registered: 1})
	newHour, err := core.NewHourlyRecord(core.NewDate(2011, 1, 1), 9, core.Misty, core.Counts{Total: 2, Casual: 1, Registered: 1})
	require.NoError(t, err)
	// The hourly primary key rejects the second row after the daily table was rewritten.
	require.Error(t, repo.Replace(ctx, []core.DailyRecord{newDay}, []core.HourlyRecord{newHour, newHour}))

	daily, err := repo.ReadDaily(ctx)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "2010-01-01", daily[0].Date.String())

	hourly, err := repo.ReadHourly(ctx)
	require.NoError(t, err)
	require.Len(t, hourly, 1)
	assert.Equal(t, "2010-01-01", hourly[0].Date.String())

	require.NoError(t, repo.Replace(ctx, []core.DailyRecord{newDay}, nil))
	hourly, err = repo.ReadHourly(ctx)
	require.NoError(t, err)
	assert.Nil(t, hourly)
}
