package regimes

import (
	"context"
	"encoding/json"
	"time"

	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/events"
	marketdatasvc "kairos/internal/services/market_data"
	optimizationsvc "kairos/internal/services/optimization"
	"kairos/internal/workers"
	"kairos/pkg/errors"
)

// RegimeDetector refreshes the regime segmentation between optimization runs.
// It replays the best parameters of the last completed run against the latest
// candle window, stores the resulting periods, and announces label switches.
// No search happens here; the thresholds only move when the optimizer runs.
type RegimeDetector struct {
	*workers.BaseWorker
	data      *marketdatasvc.Service
	svc       *optimizationsvc.Service
	runs      optimization.RunRepository
	regimes   regime.Repository
	events    *events.Publisher
	exchange  string
	symbol    string
	timeframe string
	lookback  int

	lastLabel regime.Label
}

// NewRegimeDetector creates a new regime detection worker.
// regimes and events may be nil; detection then only logs.
func NewRegimeDetector(
	data *marketdatasvc.Service,
	svc *optimizationsvc.Service,
	runs optimization.RunRepository,
	regimes regime.Repository,
	publisher *events.Publisher,
	exchange, symbol, timeframe string,
	lookback int,
	interval time.Duration,
	enabled bool,
) *RegimeDetector {
	return &RegimeDetector{
		BaseWorker: workers.NewBaseWorker("regime_detector", interval, enabled),
		data:       data,
		svc:        svc,
		runs:       runs,
		regimes:    regimes,
		events:     publisher,
		exchange:   exchange,
		symbol:     symbol,
		timeframe:  timeframe,
		lookback:   lookback,
	}
}

// Run executes one detection pass
func (w *RegimeDetector) Run(ctx context.Context) error {
	run, params, err := w.latestParams(ctx)
	if err != nil {
		return err
	}
	if run == nil {
		w.Log().Debug("No completed optimization run yet, skipping detection")
		return nil
	}

	series, err := w.data.GetLatestSeries(ctx, w.exchange, w.symbol, w.timeframe, w.lookback)
	if err != nil {
		return errors.Wrap(err, "load series")
	}

	periods, err := w.svc.ReplayPeriods(series, optimization.Mode(run.Mode), params)
	if err != nil {
		return errors.Wrap(err, "replay periods")
	}
	if len(periods) == 0 {
		return nil
	}

	current := periods[len(periods)-1]

	if w.regimes != nil {
		if err := w.regimes.StorePeriods(ctx, run.ID, w.symbol, w.timeframe, periods); err != nil {
			return errors.Wrap(err, "store periods")
		}
	}

	if w.lastLabel != "" && current.Label != w.lastLabel && w.events != nil {
		_ = w.events.PublishRegimeChange(ctx, events.RegimeChanged{
			RunID:     run.ID,
			Symbol:    w.symbol,
			Timeframe: w.timeframe,
			OldRegime: w.lastLabel.String(),
			NewRegime: current.Label.String(),
			At:        current.StartTime,
		})
		w.Log().Infow("Regime switched",
			"from", w.lastLabel,
			"to", current.Label,
			"at", current.StartTime,
		)
	}
	w.lastLabel = current.Label

	w.Log().Debugw("Regime detection complete",
		"regime", current.Label,
		"since", current.StartTime,
		"periods", len(periods),
		"run_id", run.ID,
	)

	return nil
}

// latestParams finds the newest completed run with stored best parameters
func (w *RegimeDetector) latestParams(ctx context.Context) (*optimization.Run, map[string]float64, error) {
	runs, err := w.runs.ListRuns(ctx, w.symbol, 10)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list runs")
	}

	for i := range runs {
		run := &runs[i]
		if run.Status != optimization.RunStatusCompleted || len(run.BestParams) == 0 {
			continue
		}
		if run.Timeframe != w.timeframe {
			continue
		}

		var params map[string]float64
		if err := json.Unmarshal(run.BestParams, &params); err != nil {
			return nil, nil, errors.Wrapf(err, "decode best params of run %s", run.ID)
		}
		return run, params, nil
	}

	return nil, nil, nil
}
