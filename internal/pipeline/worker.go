package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/masterrlv/log-2/internal/queue"
	"github.com/masterrlv/log-2/internal/storage"
)

// RetryPolicy bounds how often a transiently failed job is redelivered
// and how long each delivery may run.
type RetryPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration
	JobTimeout  time.Duration
}

// Runner is the unit of work a worker executes per job.
type Runner interface {
	Run(ctx context.Context, job queue.Job) (int, error)
}

// Worker consumes jobs from the queue and applies the retry policy.
type Worker struct {
	queue    queue.Queue
	runner   Runner
	artifact storage.ArtifactStore
	policy   RetryPolicy
	workers  int
}

// NewWorker builds a worker pool of the given size.
func NewWorker(q queue.Queue, runner Runner, artifact storage.ArtifactStore, policy RetryPolicy, workers int) *Worker {
	if workers <= 0 {
		workers = 1
	}
	return &Worker{
		queue:    q,
		runner:   runner,
		artifact: artifact,
		policy:   policy,
		workers:  workers,
	}
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) consume(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WORKER] dequeue failed: %v", err)
			continue
		}
		w.process(ctx, job)
	}
}

// process runs one delivery of a job. A job exceeding the wall-clock
// budget fails transiently, like a storage write failure, and consumes
// one attempt.
func (w *Worker) process(ctx context.Context, job queue.Job) {
	jobCtx := ctx
	if w.policy.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.policy.JobTimeout)
		defer cancel()
	}

	processed, err := w.runner.Run(jobCtx, job)
	if err == nil {
		log.Printf("[WORKER] upload %d completed, %d entries persisted (attempt %d)", job.UploadID, processed, job.Attempt)
		return
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		log.Printf("[WORKER] upload %d failed permanently: %v", job.UploadID, err)
		w.artifact.Delete(job.Location)
		return
	}

	if job.Attempt >= w.policy.MaxAttempts {
		log.Printf("[WORKER] upload %d failed after %d attempts: %v", job.UploadID, job.Attempt, err)
		w.artifact.Delete(job.Location)
		return
	}

	retry := job
	retry.Attempt++
	if enqueueErr := w.queue.EnqueueAfter(ctx, retry, w.policy.RetryDelay); enqueueErr != nil {
		log.Printf("[WORKER] upload %d retry scheduling failed: %v", job.UploadID, enqueueErr)
		return
	}
	log.Printf("[WORKER] upload %d failed (attempt %d/%d), retrying in %s: %v",
		job.UploadID, job.Attempt, w.policy.MaxAttempts, w.policy.RetryDelay, err)
}
