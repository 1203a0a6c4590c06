package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names carried in the envelope
const (
	TypeOptimizationStarted   = "optimization.started"
	TypeOptimizationProgress  = "optimization.progress"
	TypeOptimizationCompleted = "optimization.completed"
	TypeOptimizationRequested = "optimization.requested"
	TypeRegimeChanged         = "regime.changed"
)

// Envelope is the common header of every published event.
type Envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

func newEnvelope(eventType, source string) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   "1.0",
	}
}

// OptimizationStarted announces a new optimization run.
type OptimizationStarted struct {
	Envelope
	RunID     string `json:"run_id"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Mode      string `json:"mode"`
	Method    string `json:"method"`
	Trials    int    `json:"trials"`
	Bars      int    `json:"bars"`
}

// OptimizationProgress reports one finished trial. Progress events are
// throttled by the publisher; consumers must not assume one per trial.
type OptimizationProgress struct {
	Envelope
	RunID     string  `json:"run_id"`
	Trial     int     `json:"trial"`
	State     string  `json:"state"`
	Score     float64 `json:"score"`
	BestScore float64 `json:"best_score"`
}

// OptimizationCompleted announces the terminal state of a run.
type OptimizationCompleted struct {
	Envelope
	RunID      string  `json:"run_id"`
	Symbol     string  `json:"symbol"`
	Timeframe  string  `json:"timeframe"`
	Mode       string  `json:"mode"`
	Method     string  `json:"method"`
	Status     string  `json:"status"`
	BestScore  float64 `json:"best_score"`
	Trials     int     `json:"trials"`
	Pruned     int     `json:"pruned"`
	Failed     int     `json:"failed"`
	DurationMS int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// OptimizationRequested is the inbound request shape consumed from Kafka.
type OptimizationRequested struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Trials    int    `json:"trials"`
	Method    string `json:"method,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// RegimeChanged reports a label flip in the freshly classified series.
type RegimeChanged struct {
	Envelope
	RunID     string    `json:"run_id"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OldRegime string    `json:"old_regime"`
	NewRegime string    `json:"new_regime"`
	At        time.Time `json:"at"`
}
