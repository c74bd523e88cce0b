package worker

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/observability"
	"github.com/arkapay/ppob-backend/internal/service"
)

// CatalogWorker resyncs the provider price list on a cron schedule. Prices
// change a few times a day at most, so a cron expression fits better than a
// tight ticker.
type CatalogWorker struct {
	svc      *service.CatalogService
	cron     *cron.Cron
	schedule string
}

// NewCatalogWorker builds a worker with the given cron schedule,
// e.g. "0 */6 * * *".
func NewCatalogWorker(svc *service.CatalogService, schedule string) *CatalogWorker {
	return &CatalogWorker{
		svc:      svc,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		schedule: schedule,
	}
}

// Start registers the sync job and starts the scheduler. An initial sync
// runs immediately so the catalog is never empty after boot.
func (w *CatalogWorker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, func() { w.runOnce(ctx) }); err != nil {
		return err
	}
	go w.runOnce(ctx)
	w.cron.Start()
	zap.L().Info("catalog worker started", zap.String("schedule", w.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running sync to finish.
func (w *CatalogWorker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *CatalogWorker) runOnce(ctx context.Context) {
	result, err := w.svc.Sync(ctx)
	if err != nil {
		observability.IncrementWorkerRun("catalog", "failed")
		zap.L().Error("catalog sync failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("catalog", "success")
	zap.L().Info("catalog sync finished",
		zap.Int("upserted", result.Upserted),
		zap.Int64("deactivated", result.Deactivated))
}
