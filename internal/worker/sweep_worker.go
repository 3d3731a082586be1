package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/service"
)

// SweepWorker drives the periodic SLA sweep. Runs never overlap: the
// next tick waits for the previous sweep to return.
type SweepWorker struct {
	engine   *service.TimerEngine
	interval time.Duration
	logger   *zap.Logger
}

// NewSweepWorker constructs the worker.
func NewSweepWorker(engine *service.TimerEngine, interval time.Duration, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{engine: engine, interval: interval, logger: logger}
}

// Run sweeps immediately and then on every tick until the context is
// cancelled. A failed sweep is logged; the next tick retries.
func (w *SweepWorker) Run(ctx context.Context) {
	w.logger.Info("sla sweep worker started", zap.Duration("interval", w.interval))
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	started := time.Now()
	result, err := w.engine.Sweep(ctx, started.UTC())
	if err != nil {
		w.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	w.logger.Info("sla sweep finished",
		zap.Int("recomputed", result.Recomputed),
		zap.Int("failed", result.Failed),
		zap.Int("breached", result.Breached),
		zap.Duration("duration", time.Since(started)))
}
