package entities

import "time"

// IngestionStatus is the lifecycle state of a knowledge ingestion task.
type IngestionStatus string

const (
	IngestionPending   IngestionStatus = "pending"
	IngestionRunning   IngestionStatus = "running"
	IngestionCompleted IngestionStatus = "completed"
	IngestionFailed    IngestionStatus = "failed"
)

// IngestionTask tracks one batch of knowledge entries moving through the
// ingestion queue. Callers poll it by ID; the queue never pushes.
type IngestionTask struct {
	ID           string          `json:"id"`
	Specialty    string          `json:"specialty"`
	Source       string          `json:"source"`
	Status       IngestionStatus `json:"status"`
	EntriesTotal int             `json:"entries_total"`
	EntriesAdded int             `json:"entries_added"`
	Error        string          `json:"error,omitempty"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	StartedAt    time.Time       `json:"started_at,omitempty"`
	FinishedAt   time.Time       `json:"finished_at,omitempty"`
}
