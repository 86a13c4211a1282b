package domain

import "time"

// JobStatus enumerates prompt job lifecycle states.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusWorking JobStatus = "working"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether no further transition can leave the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusWorking, JobStatusDone, JobStatusError:
		return true
	}
	return false
}

// PromptJob is one enqueued prompt and its processing outcome. Jobs are kept
// after reaching a terminal state so they double as an audit trail.
type PromptJob struct {
	ID               string    `json:"id"`
	Prompt           string    `json:"prompt"`
	NormalizedPrompt string    `json:"normalized_prompt"`
	Status           JobStatus `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ResultRef        *string   `json:"result_ref"`
	ErrorMessage     *string   `json:"error_message"`
}
