// Package queue delivers ingestion jobs from the API process to the
// worker pool through Redis. Delivery is at-least-once; consumers must
// tolerate redelivery of the same job.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job describes one ingestion unit of work: which upload to process and
// where its source artifact lives. Attempt counts deliveries of this
// job, starting at 1.
type Job struct {
	UploadID int64  `json:"upload_id"`
	Location string `json:"location"`
	Attempt  int    `json:"attempt"`
}

// Queue hands jobs to workers. EnqueueAfter implements the fixed-delay
// retry policy without any scheduling logic in the pipeline itself.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	EnqueueAfter(ctx context.Context, job Job, delay time.Duration) error
	Dequeue(ctx context.Context) (Job, error)
}

func encodeJob(job Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	return string(payload), nil
}

func decodeJob(payload string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	return job, nil
}
