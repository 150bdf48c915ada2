// Package uploads accepts submitted log files, records them, and hands
// them to the ingestion queue.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/masterrlv/log-2/internal/auth"
	"github.com/masterrlv/log-2/internal/domain"
	"github.com/masterrlv/log-2/internal/queue"
	"github.com/masterrlv/log-2/internal/repository"
	"github.com/masterrlv/log-2/internal/storage"
)

var (
	// ErrNotFound is returned when the requested upload does not exist.
	ErrNotFound = errors.New("upload not found")
	// ErrForbidden is returned when the requester neither owns the
	// upload nor holds the admin role.
	ErrForbidden = errors.New("not authorized to access this upload")
)

// recentEntryLimit bounds how many entries come back with one upload.
const recentEntryLimit = 100

// Service manages the upload lifecycle up to the point where the
// pipeline takes over.
type Service struct {
	uploadRepo repository.UploadRepository
	entryRepo  repository.LogEntryRepository
	artifact   storage.ArtifactStore
	jobs       queue.Queue
}

// NewService creates a new upload service.
func NewService(
	uploadRepo repository.UploadRepository,
	entryRepo repository.LogEntryRepository,
	artifact storage.ArtifactStore,
	jobs queue.Queue,
) *Service {
	return &Service{
		uploadRepo: uploadRepo,
		entryRepo:  entryRepo,
		artifact:   artifact,
		jobs:       jobs,
	}
}

// UploadWithLogs pairs an upload with a bounded sample of its entries.
type UploadWithLogs struct {
	domain.Upload
	Logs []domain.LogEntry `json:"logs"`
}

// Submit stores the uploaded bytes, records the upload as pending, and
// enqueues the ingestion job. The caller gets the upload back
// immediately; parsing happens in a worker.
func (s *Service) Submit(ctx context.Context, p auth.Principal, filename string, r io.Reader) (domain.Upload, error) {
	location, size, err := s.artifact.Save(filename, r)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("failed to store upload: %w", err)
	}

	upload, err := s.uploadRepo.Create(ctx, p.ID, filename, size)
	if err != nil {
		s.artifact.Delete(location)
		return domain.Upload{}, err
	}

	job := queue.Job{UploadID: upload.ID, Location: location, Attempt: 1}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.artifact.Delete(location)
		// The row already exists; without a status write it would sit
		// pending forever with no job to move it.
		cause := fmt.Errorf("failed to enqueue ingestion job: %w", err)
		if statusErr := s.uploadRepo.SetStatus(ctx, upload.ID, domain.FailedStatus(cause.Error()), false); statusErr != nil {
			return domain.Upload{}, fmt.Errorf("%v (additionally failed to record status: %v)", cause, statusErr)
		}
		return domain.Upload{}, cause
	}

	return upload, nil
}

// Get returns the upload with its most recent entries, enforcing that
// only the owner or an admin may read it.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (UploadWithLogs, error) {
	upload, err := s.uploadRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			return UploadWithLogs{}, ErrNotFound
		}
		return UploadWithLogs{}, err
	}

	if !p.CanAccessUpload(upload.UserID) {
		return UploadWithLogs{}, ErrForbidden
	}

	logs, err := s.entryRepo.ListByUpload(ctx, id, recentEntryLimit)
	if err != nil {
		return UploadWithLogs{}, err
	}

	return UploadWithLogs{Upload: upload, Logs: logs}, nil
}

// List returns the principal's own uploads, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal, limit, offset int) ([]domain.Upload, error) {
	return s.uploadRepo.List(ctx, p.ID, limit, offset)
}
