package events

import (
	"context"

	"golang.org/x/time/rate"

	"kairos/internal/adapters/kafka"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

const source = "regime_optimizer"

// Publisher publishes optimization events to Kafka. Progress events pass
// through a rate limiter: a fast search can finish hundreds of trials per
// second and the stream only needs a sample of them.
type Publisher struct {
	producer *kafka.Producer
	progress *rate.Limiter
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		progress: rate.NewLimiter(rate.Limit(2), 5),
		log:      logger.Get().With("component", "events"),
	}
}

// PublishStarted publishes a run started event
func (p *Publisher) PublishStarted(ctx context.Context, ev OptimizationStarted) error {
	ev.Envelope = newEnvelope(TypeOptimizationStarted, source)
	return p.publish(ctx, kafka.TopicOptimizationStarted, ev.RunID, ev)
}

// PublishProgress publishes a trial progress event, dropping it silently
// when the limiter disallows. Dropped progress is not an error.
func (p *Publisher) PublishProgress(ctx context.Context, ev OptimizationProgress) error {
	if !p.progress.Allow() {
		return nil
	}

	ev.Envelope = newEnvelope(TypeOptimizationProgress, source)
	return p.publish(ctx, kafka.TopicOptimizationProgress, ev.RunID, ev)
}

// PublishCompleted publishes a run completed event
func (p *Publisher) PublishCompleted(ctx context.Context, ev OptimizationCompleted) error {
	ev.Envelope = newEnvelope(TypeOptimizationCompleted, source)
	return p.publish(ctx, kafka.TopicOptimizationCompleted, ev.RunID, ev)
}

// PublishRegimeChange publishes a regime changed event
func (p *Publisher) PublishRegimeChange(ctx context.Context, ev RegimeChanged) error {
	ev.Envelope = newEnvelope(TypeRegimeChanged, source)
	return p.publish(ctx, kafka.TopicRegimeChanged, ev.Symbol, ev)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := p.producer.Publish(ctx, topic, key, event)
	metrics.RecordKafkaMessage(topic, "produced", err)
	if err != nil {
		p.log.Error("Failed to publish event",
			"topic", topic,
			"key", key,
			"error", err,
		)
		return errors.Wrap(err, "send to kafka")
	}

	return nil
}
