package stores

import (
	"time"
)

// RunStatus represents the status of a classification run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one classification run over a workflows directory
type Run struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Root        string     `json:"root"`
	Status      RunStatus  `json:"status"`
	Total       int        `json:"total"`
	Failures    int        `json:"failures"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Summary     string     `json:"summary"` // JSON blob
}

// Issue severities
const (
	SeverityError      = "error"
	SeverityDeprecated = "deprecated"
	SeverityWarning    = "warning"
)

// Workflow is the indexed view of one classified record
type Workflow struct {
	Ref            string    `json:"ref"`
	Name           string    `json:"name"`
	WorkflowID     string    `json:"workflow_id"`
	Active         bool      `json:"active"`
	Category       string    `json:"category"`
	Tier           string    `json:"tier"`
	Verdict        string    `json:"verdict"`
	TriggerType    string    `json:"trigger_type"`
	Complexity     string    `json:"complexity"`
	NodeCount      int       `json:"node_count"`
	Integrations   []string  `json:"integrations"`
	Description    string    `json:"description"`
	HasCredentials bool      `json:"has_credentials"`
	Valid          bool      `json:"valid"`
	RunID          *string   `json:"run_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Issue is one validation finding attached to an indexed workflow
type Issue struct {
	ID        int64  `json:"id"`
	Ref       string `json:"ref"`
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	NodeIndex int    `json:"node_index"`
	NodeName  string `json:"node_name,omitempty"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

// Filter narrows ListWorkflows. Empty fields match everything.
type Filter struct {
	Category    string
	Verdict     string
	TriggerType string
	Complexity  string
	Limit       int
	Offset      int
}

// SearchHit is one full-text search match
type SearchHit struct {
	Ref      string  `json:"ref"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Verdict  string  `json:"verdict"`
	Snippet  string  `json:"snippet"`
	Rank     float64 `json:"rank"`
}

// Stats are index-wide counts
type Stats struct {
	Workflows  int            `json:"workflows"`
	Issues     int            `json:"issues"`
	Runs       int            `json:"runs"`
	ByVerdict  map[string]int `json:"by_verdict"`
	ByCategory map[string]int `json:"by_category"`
}
