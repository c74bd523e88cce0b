package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/observability"
	"github.com/arkapay/ppob-backend/internal/service"
)

// DepositWorker sweeps the mutation feed and settles any pending deposit
// with a matching payment. It backs up the gateway webhook, which can be
// delayed or dropped.
type DepositWorker struct {
	svc      *service.DepositService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewDepositWorker(svc *service.DepositService) *DepositWorker {
	return &DepositWorker{
		svc:      svc,
		interval: 2 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *DepositWorker) WithInterval(interval time.Duration) *DepositWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *DepositWorker) Start(ctx context.Context) {
	zap.L().Info("deposit worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("deposit worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("deposit worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *DepositWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *DepositWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *DepositWorker) runOnce(ctx context.Context) {
	credited, err := w.svc.ReconcileAll(ctx)
	if err != nil {
		observability.IncrementWorkerRun("deposit", "failed")
		zap.L().Error("deposit sweep failed", zap.Error(err))
		return
	}
	if credited > 0 {
		zap.L().Info("deposit sweep settled deposits", zap.Int("credited", credited))
	}
	observability.IncrementWorkerRun("deposit", "success")
}
