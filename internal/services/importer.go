package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bikeshare/internal/amqp"
	"bikeshare/internal/dataset"
	"bikeshare/internal/sources"
	"bikeshare/internal/storage"
)

// Publisher announces completed imports.
type Publisher interface {
	PublishDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error
}

// ImportRecorder is implemented by stores that keep an import log.
type ImportRecorder interface {
	RecordImport(ctx context.Context, dailyRows, hourlyRows int) (storage.Import, error)
}

// Importer copies a validated dataset from a source into a writable store.
type Importer struct {
	src       sources.Reader
	dst       sources.Writer
	publisher Publisher
}

// NewImporter wires an importer; publisher may be nil.
func NewImporter(src sources.Reader, dst sources.Writer, publisher Publisher) *Importer {
	return &Importer{src: src, dst: dst, publisher: publisher}
}

// ImportResult summarises a completed import.
type ImportResult struct {
	ImportID   int64
	DailyRows  int
	HourlyRows int
	Published  bool
	Duration   time.Duration
}

// Run validates the whole dataset before writing anything, so a bad source
// never replaces good data.
func (i *Importer) Run(ctx context.Context) (ImportResult, error) {
	start := time.Now()

	ds, err := dataset.Load(ctx, i.src)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load source: %w", err)
	}

	// An import without hourly rows clears the previous hourly table.
	if err := i.dst.Replace(ctx, ds.Daily, ds.Hourly); err != nil {
		return ImportResult{}, fmt.Errorf("write dataset: %w", err)
	}

	res := ImportResult{DailyRows: len(ds.Daily), HourlyRows: len(ds.Hourly)}
	if rec, ok := i.dst.(ImportRecorder); ok {
		imp, err := rec.RecordImport(ctx, res.DailyRows, res.HourlyRows)
		if err != nil {
			return ImportResult{}, err
		}
		res.ImportID = imp.ID
	}

	if i.publisher != nil {
		msg := amqp.NewDatasetImportedMessage(res.ImportID, res.DailyRows, res.HourlyRows,
			ds.Bounds.Start.String(), ds.Bounds.End.String())
		if err := i.publisher.PublishDatasetImported(ctx, msg); err != nil {
			// Data is already stored; consumers pick it up on their next start.
			slog.ErrorContext(ctx, "Failed to publish dataset imported message", "error", err)
		} else {
			res.Published = true
		}
	} else {
		slog.WarnContext(ctx, "AMQP client not available, skipping import notification")
	}

	res.Duration = time.Since(start)
	slog.InfoContext(ctx, "Import completed",
		"import_id", res.ImportID,
		"daily_rows", res.DailyRows,
		"hourly_rows", res.HourlyRows,
		"published", res.Published,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}
