package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bikeshare/internal/dataset"
	"bikeshare/internal/metrics"
	"bikeshare/internal/sources"
)

// Purger is satisfied by the dashboard cache.
type Purger interface {
	Purge()
}

// Reloader loads a fresh snapshot from the source and installs it.
type Reloader struct {
	mu      sync.Mutex
	src     sources.Reader
	holder  *dataset.Holder
	purger  Purger
	metrics metrics.Recorder
}

func NewReloader(src sources.Reader, holder *dataset.Holder, purger Purger, rec metrics.Recorder) *Reloader {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Reloader{src: src, holder: holder, purger: purger, metrics: rec}
}

// Reload replaces the current snapshot. On failure the previous snapshot
// stays in place. Concurrent calls are serialized.
func (r *Reloader) Reload(ctx context.Context) (*dataset.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, err := dataset.Load(ctx, r.src)
	if err != nil {
		r.metrics.IncReload(false)
		return nil, fmt.Errorf("reload dataset: %w", err)
	}

	version := r.holder.Replace(ds)
	if r.purger != nil {
		r.purger.Purge()
	}
	r.metrics.IncReload(true)
	r.metrics.SetDatasetRows(len(ds.Daily), len(ds.Hourly))

	slog.InfoContext(ctx, "Dataset snapshot replaced",
		"dataset_version", version,
		"daily_rows", len(ds.Daily),
		"hourly_rows", len(ds.Hourly))
	return ds, nil
}
