package pubsub

import "encoding/json"

// TopicRunStatus names the stream of RunStatus events, one per pipeline stage.
const TopicRunStatus = "run_status"

// Run states, in the order a run passes through them.
const (
	StateIdle      = "idle"
	StateParsing   = "parsing"
	StateClosure   = "closure"
	StateReading   = "reading"
	StateExpanding = "expanding"
	StateWriting   = "writing"
	StateReady     = "ready"
	StateFailed    = "failed"
)

// Event is the envelope written to SSE clients
type Event struct {
	Topic   string          `json:"topic"`   // Always TopicRunStatus
	Type    string          `json:"type"`    // The run state
	Data    json.RawMessage `json:"data"`    // The encoded RunStatus
	Version int             `json:"version"` // Increases by one per published status
}

// RunStatus reports the progress of a pipeline run
type RunStatus struct {
	RunID   string `json:"run_id"`
	State   string `json:"state"`
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps

	// Set once the run is ready
	Terms      int   `json:"terms,omitempty"`
	Closures   int   `json:"closures,omitempty"`
	Rows       int   `json:"rows,omitempty"`
	Appended   int   `json:"appended,omitempty"`
	Genes      int   `json:"genes,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}
