package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"egitim/internal/dataset"
)

// Syncer reloads the dataset from its remote source.
type Syncer interface {
	Sync(ctx context.Context) (dataset.Summary, error)
}

// SyncWorker reloads the dataset from Google Sheets on a fixed interval so
// the dashboards follow edits without a manual sync.
type SyncWorker struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSyncWorker(syncer Syncer, interval time.Duration, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := interval / 2
	if timeout > 2*time.Minute {
		timeout = 2 * time.Minute
	}
	return &SyncWorker{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run syncs once per interval until ctx is done. Failed syncs are logged
// and retried on the next tick.
func (w *SyncWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Sync worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(context.WithoutCancel(ctx), "Sync worker stopped")
			return nil
		case <-ticker.C:
			_ = w.SyncOnce(ctx)
		}
	}
}

// SyncOnce performs a single bounded sync.
func (w *SyncWorker) SyncOnce(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	sum, err := w.syncer.Sync(cctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		w.logger.ErrorContext(ctx, "Scheduled sync failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
	w.logger.InfoContext(ctx, "Scheduled sync completed",
		"dataset_version", sum.Version,
		"records", sum.Records,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
