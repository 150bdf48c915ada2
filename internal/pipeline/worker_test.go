package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/masterrlv/log-2/internal/queue"
)

type delayedJob struct {
	job   queue.Job
	delay time.Duration
}

type memoryQueue struct {
	ready   []queue.Job
	delayed []delayedJob
}

func (q *memoryQueue) Enqueue(ctx context.Context, job queue.Job) error {
	q.ready = append(q.ready, job)
	return nil
}

func (q *memoryQueue) EnqueueAfter(ctx context.Context, job queue.Job, delay time.Duration) error {
	q.delayed = append(q.delayed, delayedJob{job: job, delay: delay})
	return nil
}

func (q *memoryQueue) Dequeue(ctx context.Context) (queue.Job, error) {
	if len(q.ready) == 0 {
		return queue.Job{}, context.Canceled
	}
	job := q.ready[0]
	q.ready = q.ready[1:]
	return job, nil
}

type scriptedRunner struct {
	errs []error
	runs []queue.Job
}

func (r *scriptedRunner) Run(ctx context.Context, job queue.Job) (int, error) {
	r.runs = append(r.runs, job)
	if len(r.errs) == 0 {
		return 0, nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return 0, err
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, RetryDelay: 5 * time.Minute, JobTimeout: time.Minute}
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	q := &memoryQueue{}
	runner := &scriptedRunner{errs: []error{errors.New("write failed")}}
	artifact := &stubArtifactStore{}

	w := NewWorker(q, runner, artifact, testPolicy(), 1)
	w.process(context.Background(), queue.Job{UploadID: 1, Location: "uploads/x.log", Attempt: 1})

	if len(q.delayed) != 1 {
		t.Fatalf("expected one scheduled retry, got %d", len(q.delayed))
	}
	retry := q.delayed[0]
	if retry.job.Attempt != 2 {
		t.Fatalf("expected retry attempt 2, got %d", retry.job.Attempt)
	}
	if retry.delay != 5*time.Minute {
		t.Fatalf("expected 5 minute backoff, got %s", retry.delay)
	}
	if len(artifact.deleted) != 0 {
		t.Fatalf("artifact must survive while retries remain, got %v", artifact.deleted)
	}
}

func TestWorkerDoesNotRetryPermanentFailure(t *testing.T) {
	q := &memoryQueue{}
	runner := &scriptedRunner{errs: []error{&PermanentError{Cause: errors.New("could not detect log format")}}}
	artifact := &stubArtifactStore{}

	w := NewWorker(q, runner, artifact, testPolicy(), 1)
	w.process(context.Background(), queue.Job{UploadID: 2, Location: "uploads/y.log", Attempt: 1})

	if len(q.delayed) != 0 {
		t.Fatalf("permanent failure must not be retried, got %v", q.delayed)
	}
	if len(artifact.deleted) != 1 {
		t.Fatalf("expected artifact cleanup after permanent failure, got %v", artifact.deleted)
	}
}

func TestWorkerStopsAfterRetryExhaustion(t *testing.T) {
	q := &memoryQueue{}
	runner := &scriptedRunner{errs: []error{errors.New("still failing")}}
	artifact := &stubArtifactStore{}

	w := NewWorker(q, runner, artifact, testPolicy(), 1)
	w.process(context.Background(), queue.Job{UploadID: 3, Location: "uploads/z.log", Attempt: 3})

	if len(q.delayed) != 0 {
		t.Fatalf("expected no retry after final attempt, got %v", q.delayed)
	}
	if len(artifact.deleted) != 1 {
		t.Fatalf("expected artifact cleanup after exhaustion, got %v", artifact.deleted)
	}
}

func TestWorkerRetryThenSuccess(t *testing.T) {
	// Storage write fails on the first attempt and succeeds on the
	// second: the upload moves processing -> failed -> processing ->
	// completed with exactly one successful bulk insert.
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{insertErrs: []error{errors.New("storage contention"), nil}}
	artifact := &stubArtifactStore{lines: []string{accessLine}}
	q := &memoryQueue{}

	pipe := New(uploadRepo, entryRepo, artifact)
	w := NewWorker(q, pipe, artifact, testPolicy(), 1)

	job := queue.Job{UploadID: 8, Location: "uploads/r.log", Attempt: 1}
	w.process(context.Background(), job)

	if len(q.delayed) != 1 {
		t.Fatalf("expected a scheduled retry, got %d", len(q.delayed))
	}
	w.process(context.Background(), q.delayed[0].job)

	wantStatuses := []struct {
		failed    bool
		completed bool
	}{
		{false, false}, // processing
		{true, false},  // failed: storage contention
		{false, false}, // processing
		{false, true},  // completed
	}
	if len(uploadRepo.changes) != len(wantStatuses) {
		t.Fatalf("unexpected status transitions: %+v", uploadRepo.changes)
	}
	for i, want := range wantStatuses {
		got := uploadRepo.changes[i]
		if got.status.IsFailed() != want.failed || got.markCompleted != want.completed {
			t.Fatalf("transition %d unexpected: %+v", i, got)
		}
	}

	if entryRepo.inserts != 1 {
		t.Fatalf("expected exactly one successful bulk insert, got %d", entryRepo.inserts)
	}
	if len(entryRepo.byUpload[8]) != 1 {
		t.Fatalf("expected one persisted entry, got %d", len(entryRepo.byUpload[8]))
	}
}
