package optimization

import "time"

// TrialResult is one ranked outcome of a finished search. Results are
// materialized after the search completes by replaying each completed
// trial's stored parameters; nothing heavy is retained during search.
type TrialResult struct {
	Rank       int                `json:"rank"`
	Score      float64            `json:"score"`
	Params     map[string]float64 `json:"params"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	JSONParams map[string]float64 `json:"json_params,omitempty"`
}

// ExportSchemaVersion identifies the export document layout.
const ExportSchemaVersion = "2.0"

// Export is the JSON document written by export_results.
type Export struct {
	SchemaVersion   string                `json:"schema_version"`
	Meta            ExportMeta            `json:"meta"`
	ParameterRanges map[string]ParamRange `json:"parameter_ranges"`
	Results         []TrialResult         `json:"results"`
}

// ExportMeta describes the run that produced an export.
type ExportMeta struct {
	RunID     string    `json:"run_id"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	CreatedAt time.Time `json:"created_at"`
	Method    string    `json:"method"`
	Trials    int       `json:"trials"`
}

// RunStatus tracks an optimization run through the registry.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Valid checks if run status is valid
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// String returns string representation
func (s RunStatus) String() string {
	return string(s)
}

// Run is the registry record of one optimization run.
type Run struct {
	ID          string     `db:"id"`
	Symbol      string     `db:"symbol"`
	Timeframe   string     `db:"timeframe"`
	Method      string     `db:"method"`
	Mode        string     `db:"mode"`
	Trials      int        `db:"trials"`
	BestScore   float64    `db:"best_score"`
	BestParams  []byte     `db:"best_params"` // JSON
	Status      RunStatus  `db:"status"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	Error       string     `db:"error"`
}
