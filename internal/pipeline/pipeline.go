// Package pipeline orchestrates one ingestion run: read the uploaded
// file, detect its format, parse every line, persist the successes in
// one bulk write, and record the upload's final status.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/masterrlv/log-2/internal/domain"
	"github.com/masterrlv/log-2/internal/logparse"
	"github.com/masterrlv/log-2/internal/queue"
	"github.com/masterrlv/log-2/internal/repository"
	"github.com/masterrlv/log-2/internal/storage"
)

// Pipeline processes ingestion jobs delivered by the task queue.
type Pipeline struct {
	uploads  repository.UploadRepository
	entries  repository.LogEntryRepository
	artifact storage.ArtifactStore
}

// New wires a pipeline over the upload tracker, the record store, and
// the artifact store.
func New(uploads repository.UploadRepository, entries repository.LogEntryRepository, artifact storage.ArtifactStore) *Pipeline {
	return &Pipeline{
		uploads:  uploads,
		entries:  entries,
		artifact: artifact,
	}
}

// Run executes one job and returns how many lines were persisted.
//
// Individual lines that fail to parse are dropped silently; only the
// aggregate count is observable. On success the upload is marked
// completed and the source artifact removed. On failure the upload is
// marked "failed: <cause>" and the error is returned for the worker to
// classify: a PermanentError is never retried, anything else is
// considered transient.
//
// Re-running a job after a crash is safe: the bulk write replaces any
// rows from an earlier attempt, and status transitions overwrite rather
// than accumulate.
func (p *Pipeline) Run(ctx context.Context, job queue.Job) (int, error) {
	if err := p.uploads.SetStatus(ctx, job.UploadID, domain.UploadStatusProcessing, false); err != nil {
		return 0, err
	}

	processed, err := p.ingest(ctx, job)
	if err != nil {
		// The job context may already be past its budget; the failure
		// status must still land or the upload reads processing forever.
		statusCtx := context.WithoutCancel(ctx)
		if statusErr := p.uploads.SetStatus(statusCtx, job.UploadID, domain.FailedStatus(failureCause(err)), false); statusErr != nil {
			return 0, fmt.Errorf("%v (additionally failed to record status: %v)", err, statusErr)
		}
		return 0, err
	}

	if err := p.uploads.SetStatus(ctx, job.UploadID, domain.UploadStatusCompleted, true); err != nil {
		return 0, err
	}

	p.artifact.Delete(job.Location)
	return processed, nil
}

// failureCause strips the retry-classification wrapper so the recorded
// status carries only the underlying cause.
func failureCause(err error) string {
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return permanent.Cause.Error()
	}
	return err.Error()
}

func (p *Pipeline) ingest(ctx context.Context, job queue.Job) (int, error) {
	lines, err := p.artifact.ReadLines(job.Location)
	if err != nil {
		return 0, err
	}

	format, err := logparse.Detect(lines)
	if err != nil {
		if errors.Is(err, logparse.ErrUnknownFormat) {
			// Detection is deterministic; retrying cannot change it.
			return 0, &PermanentError{Cause: err}
		}
		return 0, err
	}

	parsed := make([]domain.LogEntry, 0, len(lines))
	for _, line := range lines {
		entry, parseErr := logparse.ParseLine(format, line)
		if parseErr != nil {
			continue
		}
		entry.UploadID = job.UploadID
		parsed = append(parsed, entry)
	}

	if err := p.entries.BulkInsert(ctx, job.UploadID, parsed); err != nil {
		return 0, err
	}

	return len(parsed), nil
}
