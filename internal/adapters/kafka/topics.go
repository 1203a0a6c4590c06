package kafka

// Topic definitions for Kafka event streaming
const (
	// Optimization lifecycle events
	TopicOptimizationStarted   = "optimization.started"
	TopicOptimizationProgress  = "optimization.progress"
	TopicOptimizationCompleted = "optimization.completed"

	// Inbound optimization requests (consumed by the run worker)
	TopicOptimizationRequested = "optimization.requested"

	// Regime events
	TopicRegimeChanged = "regimes.changed"
)
