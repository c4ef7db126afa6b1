package domain

import "time"

// RunStatus represents the current state of a batch run
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// JobStatus represents the state of one product's unit of work
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobSkipped    JobStatus = "skipped"
	JobFailed     JobStatus = "failed"
)

// PipelineRun tracks one batch execution over a set of products
type PipelineRun struct {
	ID            int64      `json:"id" db:"id"`
	Status        RunStatus  `json:"status" db:"status"`
	TotalProducts int        `json:"total_products" db:"total_products"`
	Completed     int        `json:"completed" db:"completed"`
	Skipped       int        `json:"skipped" db:"skipped"`
	Failed        int        `json:"failed" db:"failed"`
	AlertsEmitted int        `json:"alerts_emitted" db:"alerts_emitted"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage  string     `json:"error_message,omitempty" db:"error_message"`
}

// ProductJob tracks the processing of a single product within a run
type ProductJob struct {
	ID           int64      `json:"id" db:"id"`
	RunID        int64      `json:"run_id" db:"run_id"`
	ProductID    int64      `json:"product_id" db:"product_id"`
	Status       JobStatus  `json:"status" db:"status"`
	RiskLevel    string     `json:"risk_level,omitempty" db:"risk_level"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}
