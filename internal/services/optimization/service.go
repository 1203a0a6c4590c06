package optimization

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"kairos/internal/classifier"
	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/events"
	"kairos/internal/indicators"
	"kairos/internal/metrics"
	"kairos/internal/optimizer"
	"kairos/internal/scoring"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

const (
	defaultTrials = 100
	defaultTopN   = 20
)

// Request configures one optimization run.
type Request struct {
	Symbol    string
	Timeframe string
	Trials    int
	Method    string // grid | tpe | tpe_multivariate
	Pruner    string // none | median | successive_halving | hyperband
	Seed      int64
	Mode      optimization.Mode // optional override, "" = auto-detect
	TopN      int               // ranked results to materialize
}

// RunSummary is the outcome of a finished run.
type RunSummary struct {
	RunID     string
	Symbol    string
	Timeframe string
	Mode      optimization.Mode
	Method    string
	BestScore float64
	Results   []optimization.TrialResult
	Trials    int
	Pruned    int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Deps are the optional side-effect dependencies. Any of them may be nil;
// the search itself is purely in-memory.
type Deps struct {
	Events  *events.Publisher
	Runs    optimization.RunRepository
	Results optimization.ResultRepository
	Regimes regime.Repository
}

// Service drives parameter search over one OHLCV series: suggest, compute
// indicators, classify, score, repeat. All heavy state is per-trial and
// discarded; results are rebuilt afterwards from stored parameters.
type Service struct {
	space  *optimization.ParameterSpace
	cfg    *regime.Config
	engine *indicators.Engine
	scorer *scoring.Engine
	deps   Deps
	log    *logger.Logger
}

// NewService creates a new optimization service
func NewService(
	space *optimization.ParameterSpace,
	cfg *regime.Config,
	scoreCfg scoring.Config,
	deps Deps,
) (*Service, error) {
	if space == nil {
		space = &optimization.ParameterSpace{}
	}
	if err := space.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate parameter space")
	}

	return &Service{
		space:  space,
		cfg:    cfg,
		engine: indicators.NewEngine(),
		scorer: scoring.NewEngine(scoreCfg),
		deps:   deps,
		log:    logger.Get().With("component", "optimization_service"),
	}, nil
}

// Optimize runs the full search over the series and returns ranked results.
// Everything that can fail from bad input fails here, before the first
// trial; per-trial failures are absorbed by the study and cost one trial.
func (s *Service) Optimize(ctx context.Context, series *market_data.Series, req Request) (*RunSummary, error) {
	if series == nil || series.Len() == 0 {
		return nil, errors.Wrap(errors.ErrNoData, "optimize: empty series")
	}
	if req.Trials <= 0 {
		req.Trials = defaultTrials
	}
	if req.TopN <= 0 {
		req.TopN = defaultTopN
	}
	if req.Method == "" {
		req.Method = "tpe"
	}

	resolver := NewResolver(s.space, s.cfg, req.Mode)
	clf, err := classifier.New(resolver.Mode(), s.cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	mode := resolver.Mode()

	s.log.Infow("Starting optimization run",
		"run_id", runID,
		"symbol", req.Symbol,
		"timeframe", req.Timeframe,
		"mode", mode,
		"method", req.Method,
		"trials", req.Trials,
		"bars", series.Len(),
	)

	if s.deps.Runs != nil {
		run := &optimization.Run{
			ID:        runID,
			Symbol:    req.Symbol,
			Timeframe: req.Timeframe,
			Method:    req.Method,
			Mode:      mode.String(),
			Trials:    req.Trials,
			Status:    optimization.RunStatusRunning,
			StartedAt: startedAt,
		}
		if err := s.deps.Runs.CreateRun(ctx, run); err != nil {
			return nil, errors.Wrap(err, "register run")
		}
	}

	if s.deps.Events != nil {
		_ = s.deps.Events.PublishStarted(ctx, events.OptimizationStarted{
			RunID:     runID,
			Symbol:    req.Symbol,
			Timeframe: req.Timeframe,
			Mode:      mode.String(),
			Method:    req.Method,
			Trials:    req.Trials,
			Bars:      series.Len(),
		})
	}

	study := optimizer.NewStudy(optimizer.StudyConfig{
		Sampler: buildSampler(req.Method),
		Pruner:  buildPruner(req.Pruner),
		Seed:    req.Seed,
	})

	best := 0.0
	objective := func(t *optimizer.Trial) (float64, error) {
		trialStart := time.Now()

		params := resolver.Resolve(t)
		ind := s.engine.Compute(series, params, s.cfg)
		labels := clf.Classify(series, ind, params)
		score := s.scorer.Evaluate(series, labels)

		for k, v := range score.MetricsMap() {
			t.SetUserAttr(k, v)
		}

		t.Report(1, score.TotalScore)
		if t.ShouldPrune() {
			metrics.RecordTrial(mode.String(), "pruned", time.Since(trialStart), 0)
			s.publishProgress(ctx, runID, t.Number(), "pruned", score.TotalScore, best)
			return 0, optimizer.ErrPruned
		}

		if score.TotalScore > best {
			best = score.TotalScore
		}
		metrics.RecordTrial(mode.String(), "complete", time.Since(trialStart), score.TotalScore)
		s.publishProgress(ctx, runID, t.Number(), "complete", score.TotalScore, best)

		return score.TotalScore, nil
	}

	searchErr := study.Optimize(ctx, objective, req.Trials)

	executed, pruned, failed := countStates(study.Trials())
	for i := 0; i < failed; i++ {
		metrics.RecordTrial(mode.String(), "failed", 0, 0)
	}

	if searchErr != nil {
		s.finishRun(ctx, runID, req, mode, startedAt, nil, searchErr)
		return nil, searchErr
	}

	ranked := study.RankedTrials()
	if len(ranked) == 0 {
		err := errors.Wrapf(errors.ErrNoCompletedTrials, "run %s: %d trials, %d pruned, %d failed",
			runID, executed, pruned, failed)
		s.finishRun(ctx, runID, req, mode, startedAt, nil, err)
		return nil, err
	}

	topN := req.TopN
	if topN > len(ranked) {
		topN = len(ranked)
	}
	results := make([]optimization.TrialResult, 0, topN)
	for i := 0; i < topN; i++ {
		results = append(results, s.materialize(series, resolver, clf, ranked[i], i+1))
	}

	summary := &RunSummary{
		RunID:     runID,
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Mode:      mode,
		Method:    req.Method,
		BestScore: ranked[0].Value,
		Results:   results,
		Trials:    executed,
		Pruned:    pruned,
		Failed:    failed,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}

	metrics.RecordRun(mode.String(), summary.Duration, nil)
	metrics.BestScore.WithLabelValues(req.Symbol, req.Timeframe).Set(summary.BestScore)

	if s.deps.Results != nil {
		if err := s.deps.Results.InsertTrialResults(ctx, runID, req.Symbol, req.Timeframe, results); err != nil {
			return nil, errors.Wrap(err, "store trial results")
		}
	}
	s.finishRun(ctx, runID, req, mode, startedAt, summary, nil)

	s.log.Infow("Optimization run finished",
		"run_id", runID,
		"best_score", summary.BestScore,
		"trials", executed,
		"pruned", pruned,
		"failed", failed,
		"duration", summary.Duration,
	)

	return summary, nil
}

// ReplayPeriods rebuilds the regime segmentation a stored parameter set
// produces on a series. The regime detector uses this to refresh the
// segmentation from the last completed run without searching again.
func (s *Service) ReplayPeriods(series *market_data.Series, mode optimization.Mode, params map[string]float64) ([]regime.Period, error) {
	if series == nil || series.Len() == 0 {
		return nil, errors.Wrap(errors.ErrNoData, "replay periods")
	}

	resolver := NewResolver(s.space, s.cfg, mode)
	clf, err := classifier.New(resolver.Mode(), s.cfg)
	if err != nil {
		return nil, err
	}

	resolved := resolver.FromStored(params)
	ind := s.engine.Compute(series, resolved, s.cfg)
	labels := clf.Classify(series, ind, resolved)
	return regime.PeriodsFromLabels(labels, series.Times), nil
}

// BestRegimePeriods replays the top-ranked parameters and returns the
// contiguous regime periods they produce, optionally persisting them.
func (s *Service) BestRegimePeriods(ctx context.Context, series *market_data.Series, summary *RunSummary) ([]regime.Period, error) {
	if summary == nil || len(summary.Results) == 0 {
		return nil, errors.Wrap(errors.ErrNoCompletedTrials, "best regime periods")
	}

	periods, err := s.ReplayPeriods(series, summary.Mode, summary.Results[0].Params)
	if err != nil {
		return nil, err
	}

	if s.deps.Regimes != nil {
		if err := s.deps.Regimes.StorePeriods(ctx, summary.RunID, summary.Symbol, summary.Timeframe, periods); err != nil {
			return nil, errors.Wrap(err, "store regime periods")
		}
	}

	if s.deps.Events != nil && len(periods) > 1 {
		last := periods[len(periods)-1]
		prev := periods[len(periods)-2]
		_ = s.deps.Events.PublishRegimeChange(ctx, events.RegimeChanged{
			RunID:     summary.RunID,
			Symbol:    summary.Symbol,
			Timeframe: summary.Timeframe,
			OldRegime: prev.Label.String(),
			NewRegime: last.Label.String(),
			At:        last.StartTime,
		})
	}

	return periods, nil
}

// materialize rebuilds one ranked result by replaying the frozen trial's
// parameters. Metrics recomputed here are overlaid with the user attributes
// stored during the search, which stay authoritative for the score the
// sampler actually saw.
func (s *Service) materialize(
	series *market_data.Series,
	resolver *Resolver,
	clf classifier.Classifier,
	ft optimizer.FrozenTrial,
	rank int,
) optimization.TrialResult {
	params := resolver.FromStored(ft.Params)
	ind := s.engine.Compute(series, params, s.cfg)
	labels := clf.Classify(series, ind, params)
	score := s.scorer.Evaluate(series, labels)

	m := score.MetricsMap()
	m["segments"] = float64(len(regime.PeriodsFromLabels(labels, series.Times)))
	m["switches"] = float64(regime.Switches(labels))
	m["composite_score"] = scoring.Composite(labels, nil)
	for k, v := range ft.UserAttrs {
		m[k] = v
	}

	stored := make(map[string]float64, len(ft.Params))
	for k, v := range ft.Params {
		stored[k] = v
	}

	res := optimization.TrialResult{
		Rank:      rank,
		Score:     ft.Value,
		Params:    stored,
		Metrics:   m,
		Timestamp: time.Now().UTC(),
	}
	if resolver.Mode() == optimization.ModeJSON {
		res.JSONParams = resolver.EffectiveJSON(params)
	}
	return res
}

func (s *Service) publishProgress(ctx context.Context, runID string, trial int, state string, score, best float64) {
	if s.deps.Events == nil {
		return
	}
	_ = s.deps.Events.PublishProgress(ctx, events.OptimizationProgress{
		RunID:     runID,
		Trial:     trial,
		State:     state,
		Score:     score,
		BestScore: best,
	})
}

// finishRun records the terminal run state in the registry and on the event
// stream. Best-effort: a run that finished in memory is not failed
// retroactively by bookkeeping errors.
func (s *Service) finishRun(
	ctx context.Context,
	runID string,
	req Request,
	mode optimization.Mode,
	startedAt time.Time,
	summary *RunSummary,
	runErr error,
) {
	status := optimization.RunStatusCompleted
	bestScore := 0.0
	var bestParams []byte
	errMsg := ""

	if runErr != nil {
		status = optimization.RunStatusFailed
		errMsg = runErr.Error()
	} else if summary != nil {
		bestScore = summary.BestScore
		if len(summary.Results) > 0 {
			bestParams, _ = json.Marshal(summary.Results[0].Params)
		}
	}

	if s.deps.Runs != nil {
		now := time.Now().UTC()
		run := &optimization.Run{
			ID:          runID,
			Symbol:      req.Symbol,
			Timeframe:   req.Timeframe,
			Method:      req.Method,
			Mode:        mode.String(),
			Trials:      req.Trials,
			BestScore:   bestScore,
			BestParams:  bestParams,
			Status:      status,
			StartedAt:   startedAt,
			CompletedAt: &now,
			Error:       errMsg,
		}
		if err := s.deps.Runs.FinishRun(ctx, run); err != nil {
			s.log.Error("Failed to finish run record", "run_id", runID, "error", err)
		}
	}

	if s.deps.Events != nil {
		_ = s.deps.Events.PublishCompleted(ctx, events.OptimizationCompleted{
			RunID:      runID,
			Symbol:     req.Symbol,
			Timeframe:  req.Timeframe,
			Mode:       mode.String(),
			Method:     req.Method,
			Status:     status.String(),
			BestScore:  bestScore,
			Trials:     req.Trials,
			DurationMS: time.Since(startedAt).Milliseconds(),
			Error:      errMsg,
		})
	}
}

func buildSampler(method string) optimizer.Sampler {
	switch method {
	case "grid":
		return optimizer.NewGridSampler()
	case "tpe_multivariate":
		return optimizer.NewTPESampler(optimizer.TPEConfig{Multivariate: true})
	default:
		return optimizer.NewTPESampler(optimizer.TPEConfig{})
	}
}

func buildPruner(name string) optimizer.Pruner {
	switch name {
	case "median":
		return optimizer.NewMedianPruner()
	case "successive_halving", "asha":
		return optimizer.NewSuccessiveHalvingPruner()
	case "hyperband":
		return optimizer.NewHyperbandPruner(1, 9, 3)
	default:
		return nil
	}
}

func countStates(trials []optimizer.FrozenTrial) (executed, pruned, failed int) {
	executed = len(trials)
	for _, t := range trials {
		switch t.State {
		case optimizer.StatePruned:
			pruned++
		case optimizer.StateFailed:
			failed++
		}
	}
	return executed, pruned, failed
}
