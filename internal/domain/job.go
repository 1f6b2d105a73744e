package domain

import "time"

type JobKind string

const (
	JobKindBulkSend        JobKind = "bulk-send"
	JobKindGroupAddMembers JobKind = "group-add-members"
)

type JobState string

const (
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
)

type OutcomeStatus string

const (
	OutcomePending OutcomeStatus = "pending"
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

type Outcome struct {
	Target string        `json:"target"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Job is a snapshot of one batch run. Outcomes has one entry per target in
// input order; Cursor is the index of the next target to process.
type Job struct {
	ID         string     `json:"id"`
	AccountID  AccountID  `json:"accountId"`
	Kind       JobKind    `json:"kind"`
	State      JobState   `json:"state"`
	Cursor     int        `json:"cursor"`
	Outcomes   []Outcome  `json:"outcomes"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (j Job) Counts() (succeeded, failed int) {
	for _, o := range j.Outcomes {
		switch o.Status {
		case OutcomeSuccess:
			succeeded++
		case OutcomeFailure:
			failed++
		}
	}
	return succeeded, failed
}

// Percent reports how much of the job has been processed, 0-100.
func (j Job) Percent() float64 {
	if len(j.Outcomes) == 0 {
		return 100
	}
	return float64(j.Cursor) / float64(len(j.Outcomes)) * 100
}
