package csvfile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare/internal/core"
)

const day = "dteday,season,casual,registered,total_count\n2011-01-01,1,331,654,985\n"
const hour = "dteday,hour,weather_situation,casual,registered,total_count\n2011-01-01,0,1,3,13,16\n"

func TestReadFromFiles(t *testing.T) {
	dir := t.TempDir()
	dayPath := filepath.Join(dir, "day.csv")
	hourPath := filepath.Join(dir, "hour.csv")
	require.NoError(t, os.WriteFile(dayPath, []byte(day), 0o644))
	require.NoError(t, os.WriteFile(hourPath, []byte(hour), 0o644))

	src := New(dayPath, hourPath, time.Second)
	daily, err := src.ReadDaily(context.Background())
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(985), daily[0].Total)

	hourly, err := src.ReadHourly(context.Background())
	require.NoError(t, err)
	require.Len(t, hourly, 1)
	assert.Equal(t, core.Night, hourly[0].HourGroup)
}

func TestHourlyOptional(t *testing.T) {
	src := New("unused.csv", "", time.Second)
	hourly, err := src.ReadHourly(context.Background())
	require.NoError(t, err)
	assert.Nil(t, hourly)
}

func TestMissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope.csv"), "", time.Second)
	_, err := src.ReadDaily(context.Background())
	assert.Error(t, err)
}

func TestReadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/day.csv":
			_, _ = w.Write([]byte(day))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := New(srv.URL+"/day.csv", srv.URL+"/missing.csv", time.Second)
	daily, err := src.ReadDaily(context.Background())
	require.NoError(t, err)
	assert.Len(t, daily, 1)

	_, err = src.ReadHourly(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
