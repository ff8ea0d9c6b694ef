package models

import "time"

const (
	SummaryStatusIdle     = "idle"
	SummaryStatusRunning  = "running"
	SummaryStatusComplete = "complete"
	SummaryStatusError    = "error"
)

const (
	StrategyDirect     = "direct"
	StrategyChunked    = "chunked"
	StrategyTruncated  = "truncated"
	StrategyStatistics = "statistics"
	StrategyEmpty      = "empty"
)

// AISummaryJob is the cached record of a background summary computation.
// Clients start a job, then poll its status until it is complete or error.
type AISummaryJob struct {
	Fingerprint string     `json:"fingerprint"`
	Status      string     `json:"status"`
	Model       string     `json:"model"`
	RequestedAt *time.Time `json:"requestedAt,omitempty"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	LogCount    *int       `json:"logCount,omitempty"`
	Strategy    string     `json:"strategy,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Active reports whether a new start must leave the record untouched.
func (j *AISummaryJob) Active() bool {
	return j.Status == SummaryStatusRunning || j.Status == SummaryStatusComplete
}
