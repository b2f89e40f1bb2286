package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bikeshare/internal/dataset"
	"bikeshare/internal/storage"
)

// ImportLog is implemented by stores that record completed imports.
type ImportLog interface {
	LastImport(ctx context.Context) (storage.Import, bool, error)
}

// SnapshotReloader is satisfied by *Reloader.
type SnapshotReloader interface {
	Reload(ctx context.Context) (*dataset.Dataset, error)
}

// ImportPoller reloads the snapshot when the import log shows a new import.
// It stands in for the dataset.imported message when no broker is configured.
type ImportPoller struct {
	log      ImportLog
	reloader SnapshotReloader
	interval time.Duration

	mu      sync.Mutex
	running bool
	lastID  int64
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewImportPoller(log ImportLog, reloader SnapshotReloader, interval time.Duration) *ImportPoller {
	return &ImportPoller{log: log, reloader: reloader, interval: interval}
}

// Start records the current import as the baseline and begins polling.
// Returns an error if already running.
func (p *ImportPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("import poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	if imp, ok, err := p.log.LastImport(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to read import log baseline", "error", err)
	} else if ok {
		p.setLastID(imp.ID)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Import poller started", "poll_interval", p.interval.String())
	return nil
}

// Stop signals the loop and waits for it to finish.
func (p *ImportPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Import poller stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Import poller stop timed out")
		return ctx.Err()
	}
}

func (p *ImportPoller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ImportPoller) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				slog.ErrorContext(ctx, "Import poll failed", "error", err)
			}
		}
	}
}

// Poll checks the import log once and reloads when a newer import exists.
// It reports whether a reload happened. A failed reload is retried on the
// next poll.
func (p *ImportPoller) Poll(ctx context.Context) (bool, error) {
	imp, ok, err := p.log.LastImport(ctx)
	if err != nil {
		return false, err
	}
	if !ok || imp.ID <= p.getLastID() {
		return false, nil
	}

	slog.InfoContext(ctx, "New import detected", "import_id", imp.ID, "imported_at", imp.ImportedAt)
	if _, err := p.reloader.Reload(ctx); err != nil {
		return false, err
	}
	p.setLastID(imp.ID)
	return true, nil
}

func (p *ImportPoller) getLastID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastID
}

func (p *ImportPoller) setLastID(id int64) {
	p.mu.Lock()
	p.lastID = id
	p.mu.Unlock()
}
