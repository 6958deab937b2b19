package dto

import "time"

// AudioJobMessage is the background queue payload. Audio bytes are not
// carried here; the worker takes them from the job registry or downloads them.
type AudioJobMessage struct {
	JobID      string    `json:"job_id" validate:"required"`
	UserID     string    `json:"user_id" validate:"required"`
	MessageID  string    `json:"message_id" validate:"required"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
