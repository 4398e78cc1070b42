// Package ingest populates the store with vectors for every listed word that
// is not stored yet, and accounts for each word it touched.
package ingest

import "time"

// Status is what happened to one input word.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusInvalid   Status = "invalid"
)

// Outcome is the per-word result of a run.
type Outcome struct {
	Word   string
	Status Status
	Err    error
}

// Report summarises one ingestion run. Failures lists every word that was
// rejected or could not be embedded.
type Report struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Generated    int
	Skipped      int
	Failed       int
	Invalid      int
	LimitReached bool
	Failures     []Outcome
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) record(o Outcome) {
	switch o.Status {
	case StatusGenerated:
		r.Generated++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
		r.Failures = append(r.Failures, o)
	case StatusInvalid:
		r.Invalid++
		r.Failures = append(r.Failures, o)
	}
}

// WordEvent is the payload published for every embedded or failed word.
type WordEvent struct {
	RunID      string    `json:"run_id"`
	Word       string    `json:"word"`
	Status     Status    `json:"status"`
	Dimensions int       `json:"dimensions,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
