package audio

import (
	"context"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
)

// ProcessingStatus is the latest job state for one user.
type ProcessingStatus struct {
	JobID      string    `json:"job_id"`
	Status     Status    `json:"status"`
	Filename   string    `json:"filename"`
	StartTime  time.Time `json:"start_time"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Elapsed is measured to FinishedAt for finished jobs and to now otherwise.
func (s ProcessingStatus) Elapsed(now time.Time) time.Duration {
	if !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// StatusStore keeps one ProcessingStatus per user. Start takes ownership of
// the user's entry for jobID; Finish only applies while jobID still owns it.
type StatusStore interface {
	Start(ctx context.Context, userID, jobID, filename string) error
	Finish(ctx context.Context, userID, jobID string, status Status) (bool, error)
	Get(ctx context.Context, userID string) (*ProcessingStatus, error)
}
