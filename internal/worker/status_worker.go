package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/observability"
	"github.com/arkapay/ppob-backend/internal/service"
)

// StatusWorker polls the provider for transactions stuck in pending or
// process. Transactions younger than minAge are skipped so the normal
// create/callback flow gets a chance to resolve them first.
type StatusWorker struct {
	svc      *service.TransactionService
	interval time.Duration
	minAge   time.Duration
	batch    int
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewStatusWorker(svc *service.TransactionService) *StatusWorker {
	return &StatusWorker{
		svc:      svc,
		interval: time.Minute,
		minAge:   2 * time.Minute,
		batch:    50,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the poll interval.
func (w *StatusWorker) WithInterval(interval time.Duration) *StatusWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithBatchSize limits how many transactions one run refreshes.
func (w *StatusWorker) WithBatchSize(n int) *StatusWorker {
	if n > 0 {
		w.batch = n
	}
	return w
}

// Start blocks and refreshes unresolved transactions at the configured
// interval.
func (w *StatusWorker) Start(ctx context.Context) {
	zap.L().Info("status worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("status worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("status worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *StatusWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *StatusWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *StatusWorker) runOnce(ctx context.Context) {
	trxs, err := w.svc.ListUnresolved(ctx, w.minAge, w.batch)
	if err != nil {
		observability.IncrementWorkerRun("status", "failed")
		zap.L().Error("status worker listing failed", zap.Error(err))
		return
	}
	for _, trx := range trxs {
		if _, err := w.svc.Refresh(ctx, trx.ID); err != nil {
			zap.L().Warn("status refresh failed",
				zap.String("trx_id", trx.ID.String()), zap.Error(err))
		}
	}
	observability.IncrementWorkerRun("status", "success")
}
