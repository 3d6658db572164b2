package model

import "time"

// Outcome classifies the result of reconciling one opportunity.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeInvalid Outcome = "invalid" // no usable loan amount
	OutcomeFailed  Outcome = "failed"  // write failed, retried next cycle
)

// Source records what triggered a reconcile.
type Source string

const (
	SourcePoll    Source = "poll"
	SourceWebhook Source = "webhook"
	SourceManual  Source = "manual"
)

// CycleReport summarizes one fetch-and-reconcile pass.
type CycleReport struct {
	CycleID    string        `json:"cycle_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Fetched    int           `json:"fetched"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Invalid    int           `json:"invalid"`
	Failed     int           `json:"failed"`
	FetchError string        `json:"fetch_error,omitempty"`
}

// UpdateRecord is the audit trail entry written for every successful value
// update.
type UpdateRecord struct {
	ID            string    `json:"id" db:"id"`
	CycleID       string    `json:"cycle_id" db:"cycle_id"`
	OpportunityID string    `json:"opportunity_id" db:"opportunity_id"`
	PipelineID    string    `json:"pipeline_id" db:"pipeline_id"`
	Name          string    `json:"name" db:"name"`
	LoanAmount    float64   `json:"loan_amount" db:"loan_amount"`
	PreviousValue float64   `json:"previous_value" db:"previous_value"`
	NewValue      float64   `json:"new_value" db:"new_value"`
	Rate          float64   `json:"rate" db:"rate"`
	Source        Source    `json:"source" db:"source"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
