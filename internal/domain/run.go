package domain

import "time"

type RunStatus string

const (
	RunIdle      RunStatus = "Idle"
	RunRunning   RunStatus = "Running"
	RunCancelled RunStatus = "Cancelled"
	RunCompleted RunStatus = "Completed"
)

// Summary is the counter view of a run, also used as the RunCompleted payload.
type Summary struct {
	RunID       string     `json:"run_id"`
	Query       Query      `json:"query"`
	Status      RunStatus  `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Enriched    int        `json:"enriched"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	NeedsReview int        `json:"needs_review"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
