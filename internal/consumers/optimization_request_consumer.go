package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"kairos/internal/adapters/kafka"
	"kairos/internal/adapters/redis"
	"kairos/internal/domain/optimization"
	"kairos/internal/events"
	"kairos/internal/metrics"
	marketdatasvc "kairos/internal/services/market_data"
	optimizationsvc "kairos/internal/services/optimization"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// OptimizationRequestConsumer serves ad-hoc optimization requests from Kafka.
// Unlike the periodic worker it accepts any symbol and timeframe, so external
// systems can trigger a re-tune without touching the daemon configuration.
type OptimizationRequestConsumer struct {
	consumer *kafka.Consumer
	data     *marketdatasvc.Service
	svc      *optimizationsvc.Service
	locker   *redis.Client

	exchange string
	lookback int
	lockTTL  time.Duration
	log      *logger.Logger
}

// NewOptimizationRequestConsumer creates a new request consumer
func NewOptimizationRequestConsumer(
	consumer *kafka.Consumer,
	data *marketdatasvc.Service,
	svc *optimizationsvc.Service,
	locker *redis.Client,
	exchange string,
	lookback int,
	lockTTL time.Duration,
) *OptimizationRequestConsumer {
	return &OptimizationRequestConsumer{
		consumer: consumer,
		data:     data,
		svc:      svc,
		locker:   locker,
		exchange: exchange,
		lookback: lookback,
		lockTTL:  lockTTL,
		log:      logger.Get().With("component", "optimization_request_consumer"),
	}
}

// Start begins consuming optimization requests. Blocks until the context is
// cancelled; a cancelled context is a clean stop, not an error.
func (rc *OptimizationRequestConsumer) Start(ctx context.Context) error {
	rc.log.Infow("Starting optimization request consumer",
		"topic", kafka.TopicOptimizationRequested,
	)

	err := rc.consumer.Consume(ctx, rc.handleMessage)
	if errors.Is(err, context.Canceled) {
		rc.log.Info("Optimization request consumer stopped")
		return nil
	}

	return err
}

func (rc *OptimizationRequestConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var req events.OptimizationRequested
	err := json.Unmarshal(msg.Value, &req)
	metrics.RecordKafkaMessage(msg.Topic, "consumed", err)
	if err != nil {
		return errors.Wrap(err, "unmarshal optimization request")
	}

	if req.Symbol == "" || req.Timeframe == "" {
		return errors.Wrap(errors.ErrInvalidInput, "optimization request needs symbol and timeframe")
	}

	rc.log.Infow("Optimization requested",
		"symbol", req.Symbol,
		"timeframe", req.Timeframe,
		"trials", req.Trials,
		"method", req.Method,
	)

	// The periodic worker holds the same lock; a request that collides with a
	// running study is dropped rather than queued, callers can re-publish.
	if rc.locker != nil {
		lockKey := fmt.Sprintf("optimize:%s:%s", req.Symbol, req.Timeframe)
		acquired, lockErr := rc.locker.AcquireLock(ctx, lockKey, rc.lockTTL)
		if lockErr != nil {
			return errors.Wrap(lockErr, "acquire optimization lock")
		}
		if !acquired {
			rc.log.Infow("Optimization already running, dropping request",
				"symbol", req.Symbol,
				"timeframe", req.Timeframe,
			)
			return nil
		}
		defer func() {
			if releaseErr := rc.locker.ReleaseLock(context.Background(), lockKey); releaseErr != nil {
				rc.log.Warnw("Failed to release optimization lock", "error", releaseErr)
			}
		}()
	}

	series, err := rc.data.GetLatestSeries(ctx, rc.exchange, req.Symbol, req.Timeframe, rc.lookback)
	if err != nil {
		return errors.Wrapf(err, "load series for %s %s", req.Symbol, req.Timeframe)
	}

	summary, err := rc.svc.Optimize(ctx, series, optimizationsvc.Request{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Trials:    req.Trials,
		Method:    req.Method,
		Mode:      optimizationRequestMode(req.Mode),
	})
	if err != nil {
		return errors.Wrapf(err, "optimize %s %s", req.Symbol, req.Timeframe)
	}

	periods, err := rc.svc.BestRegimePeriods(ctx, series, summary)
	if err != nil {
		return errors.Wrap(err, "materialize regime periods")
	}

	rc.log.Infow("Requested optimization finished",
		"run_id", summary.RunID,
		"symbol", summary.Symbol,
		"best_score", summary.BestScore,
		"trials", summary.Trials,
		"periods", len(periods),
		"duration", summary.Duration,
	)

	return nil
}

// optimizationRequestMode maps the wire mode to a resolution mode. Anything
// unrecognized falls back to auto-detection.
func optimizationRequestMode(raw string) optimization.Mode {
	mode := optimization.Mode(raw)
	if !mode.Valid() {
		return ""
	}
	return mode
}
