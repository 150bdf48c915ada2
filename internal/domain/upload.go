package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadStatus tracks where an upload sits in its ingestion lifecycle.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// FailedStatus builds the status value recorded for a failed ingestion run.
// The cause travels inside the status string so callers see a single
// human-readable value.
func FailedStatus(cause string) UploadStatus {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		return UploadStatusFailed
	}
	return UploadStatus(string(UploadStatusFailed) + ": " + cause)
}

// IsFailed reports whether the status marks a failed run, with or without
// an attached cause.
func (s UploadStatus) IsFailed() bool {
	return s == UploadStatusFailed || strings.HasPrefix(string(s), string(UploadStatusFailed)+":")
}

// Upload represents one submitted log file and its ingestion job.
type Upload struct {
	ID          int64        `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Filename    string       `json:"filename"`
	Size        int64        `json:"size"`
	Status      UploadStatus `json:"status"`
	UploadedAt  time.Time    `json:"upload_timestamp"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
