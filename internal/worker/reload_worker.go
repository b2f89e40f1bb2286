package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bikeshare/internal/amqp"
	"bikeshare/internal/dataset"
)

// Reloader installs a fresh dataset snapshot.
type Reloader interface {
	Reload(ctx context.Context) (*dataset.Dataset, error)
}

// ReloadWorker reloads the dashboard snapshot whenever an import completes.
type ReloadWorker struct {
	reloader Reloader
}

func NewReloadWorker(reloader Reloader) *ReloadWorker {
	return &ReloadWorker{reloader: reloader}
}

// HandleDatasetImported processes one dataset.imported message. A returned
// error makes the consumer requeue the delivery once.
func (w *ReloadWorker) HandleDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error {
	slog.InfoContext(ctx, "Processing dataset imported message",
		"import_id", msg.ImportID,
		"daily_rows", msg.DailyRows,
		"hourly_rows", msg.HourlyRows,
		"start", msg.Start,
		"end", msg.End)

	ds, err := w.reloader.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload after import %d: %w", msg.ImportID, err)
	}

	// The store may have been replaced again before we read it.
	if len(ds.Daily) != msg.DailyRows {
		slog.WarnContext(ctx, "Reloaded row count differs from import",
			"import_id", msg.ImportID,
			"expected_daily_rows", msg.DailyRows,
			"daily_rows", len(ds.Daily))
	}
	return nil
}

// Run consumes dataset.imported messages until ctx is cancelled, redialing
// the broker after connection failures.
func (w *ReloadWorker) Run(ctx context.Context, dial func() (*amqp.Client, error)) error {
	slog.InfoContext(ctx, "Starting reload worker")
	err := amqp.ConsumeWithReconnect(ctx, dial, w.HandleDatasetImported)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("reload worker: %w", err)
	}
	slog.InfoContext(ctx, "Reload worker stopped")
	return nil
}
