package regimes

import (
	"context"
	"fmt"
	"time"

	"kairos/internal/adapters/redis"
	marketdatasvc "kairos/internal/services/market_data"
	optimizationsvc "kairos/internal/services/optimization"
	"kairos/internal/workers"
	"kairos/pkg/errors"
)

// OptimizeWorker re-optimizes regime thresholds for one symbol on a schedule.
// A Redis lock guards the symbol+timeframe pair: concurrent optimization of
// the same series by multiple instances only wastes trials.
type OptimizeWorker struct {
	*workers.BaseWorker
	data       *marketdatasvc.Service
	svc        *optimizationsvc.Service
	locker     *redis.Client
	req        optimizationsvc.Request
	exchange   string
	lookback   int
	lockTTL    time.Duration
	exportPath string
}

// NewOptimizeWorker creates a new scheduled optimization worker.
// locker may be nil for single-instance deployments; exportPath may be empty
// to skip writing the results file.
func NewOptimizeWorker(
	data *marketdatasvc.Service,
	svc *optimizationsvc.Service,
	locker *redis.Client,
	req optimizationsvc.Request,
	exchange string,
	lookback int,
	lockTTL time.Duration,
	exportPath string,
	interval time.Duration,
	enabled bool,
) *OptimizeWorker {
	return &OptimizeWorker{
		BaseWorker: workers.NewBaseWorker("optimizer", interval, enabled),
		data:       data,
		svc:        svc,
		locker:     locker,
		req:        req,
		exchange:   exchange,
		lookback:   lookback,
		lockTTL:    lockTTL,
		exportPath: exportPath,
	}
}

// Run executes one scheduled optimization pass
func (w *OptimizeWorker) Run(ctx context.Context) error {
	if w.locker != nil {
		lockKey := fmt.Sprintf("optimize:%s:%s", w.req.Symbol, w.req.Timeframe)

		acquired, err := w.locker.AcquireLock(ctx, lockKey, w.lockTTL)
		if err != nil {
			return errors.Wrap(err, "acquire optimization lock")
		}
		if !acquired {
			w.Log().Infow("Skipping optimization, lock held by another instance",
				"symbol", w.req.Symbol,
				"timeframe", w.req.Timeframe,
			)
			return nil
		}
		defer func() {
			if err := w.locker.ReleaseLock(ctx, lockKey); err != nil {
				w.Log().Warnw("Failed to release optimization lock", "error", err)
			}
		}()
	}

	series, err := w.data.GetLatestSeries(ctx, w.exchange, w.req.Symbol, w.req.Timeframe, w.lookback)
	if err != nil {
		return errors.Wrap(err, "load series")
	}

	summary, err := w.svc.Optimize(ctx, series, w.req)
	if err != nil {
		return errors.Wrap(err, "optimize")
	}

	periods, err := w.svc.BestRegimePeriods(ctx, series, summary)
	if err != nil {
		return errors.Wrap(err, "persist best periods")
	}

	if w.exportPath != "" {
		if err := w.svc.ExportResults(w.exportPath, summary); err != nil {
			w.Log().Warnw("Failed to write results export", "path", w.exportPath, "error", err)
		}
	}

	w.Log().Infow("Scheduled optimization complete",
		"run_id", summary.RunID,
		"best_score", summary.BestScore,
		"trials", summary.Trials,
		"pruned", summary.Pruned,
		"periods", len(periods),
		"duration", summary.Duration,
	)

	return nil
}
