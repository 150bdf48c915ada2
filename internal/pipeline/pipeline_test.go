package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/masterrlv/log-2/internal/domain"
	"github.com/masterrlv/log-2/internal/queue"
)

const accessLine = `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /index.html HTTP/1.0" 200 2326 "-" "Mozilla/5.0"`

type statusChange struct {
	status        domain.UploadStatus
	markCompleted bool
}

type stubUploadRepo struct {
	changes   []statusChange
	statusErr error
}

func (r *stubUploadRepo) Create(ctx context.Context, userID uuid.UUID, filename string, size int64) (domain.Upload, error) {
	return domain.Upload{}, errors.New("not implemented")
}

func (r *stubUploadRepo) GetByID(ctx context.Context, id int64) (domain.Upload, error) {
	return domain.Upload{}, errors.New("not implemented")
}

func (r *stubUploadRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Upload, error) {
	return nil, errors.New("not implemented")
}

func (r *stubUploadRepo) SetStatus(ctx context.Context, id int64, status domain.UploadStatus, markCompleted bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.statusErr != nil {
		return r.statusErr
	}
	r.changes = append(r.changes, statusChange{status: status, markCompleted: markCompleted})
	return nil
}

type stubEntryRepo struct {
	// byUpload mimics the replace semantics of the real bulk insert:
	// each run overwrites the upload's entry set.
	byUpload   map[int64][]domain.LogEntry
	inserts    int
	insertErrs []error
}

func (r *stubEntryRepo) BulkInsert(ctx context.Context, uploadID int64, entries []domain.LogEntry) error {
	if len(r.insertErrs) > 0 {
		err := r.insertErrs[0]
		r.insertErrs = r.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if r.byUpload == nil {
		r.byUpload = map[int64][]domain.LogEntry{}
	}
	r.byUpload[uploadID] = entries
	r.inserts++
	return nil
}

func (r *stubEntryRepo) Search(ctx context.Context, filter domain.SearchFilter, limit, offset int) ([]domain.LogEntry, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (r *stubEntryRepo) ListByUpload(ctx context.Context, uploadID int64, limit int) ([]domain.LogEntry, error) {
	return nil, errors.New("not implemented")
}

func (r *stubEntryRepo) TimeSeries(ctx context.Context, start, end time.Time, granularity, level, source string) ([]domain.TimeSeriesPoint, error) {
	return nil, errors.New("not implemented")
}

func (r *stubEntryRepo) Distribution(ctx context.Context, field string, start, end *time.Time) ([]domain.DistributionEntry, error) {
	return nil, errors.New("not implemented")
}

func (r *stubEntryRepo) TopErrors(ctx context.Context, limit int, start, end *time.Time) ([]domain.TopError, error) {
	return nil, errors.New("not implemented")
}

type stubArtifactStore struct {
	lines   []string
	readErr error
	deleted []string
}

func (s *stubArtifactStore) Save(filename string, r io.Reader) (string, int64, error) {
	return "", 0, errors.New("not implemented")
}

func (s *stubArtifactStore) ReadLines(location string) ([]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.lines, nil
}

func (s *stubArtifactStore) Delete(location string) {
	s.deleted = append(s.deleted, location)
}

func TestPipelineIngestsMixedFile(t *testing.T) {
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{}
	artifact := &stubArtifactStore{lines: []string{accessLine, "garbage that matches nothing"}}

	pipe := New(uploadRepo, entryRepo, artifact)
	processed, err := pipe.Run(context.Background(), queue.Job{UploadID: 7, Location: "uploads/a.log", Attempt: 1})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if processed != 1 {
		t.Fatalf("expected 1 processed entry, got %d", processed)
	}
	entries := entryRepo.byUpload[7]
	if len(entries) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(entries))
	}
	if entries[0].Level != domain.LevelInfo {
		t.Fatalf("expected level INFO, got %s", entries[0].Level)
	}
	if entries[0].UploadID != 7 {
		t.Fatalf("expected entry bound to upload 7, got %d", entries[0].UploadID)
	}

	if len(uploadRepo.changes) != 2 {
		t.Fatalf("expected 2 status changes, got %+v", uploadRepo.changes)
	}
	if uploadRepo.changes[0].status != domain.UploadStatusProcessing {
		t.Fatalf("expected first transition to processing, got %s", uploadRepo.changes[0].status)
	}
	last := uploadRepo.changes[1]
	if last.status != domain.UploadStatusCompleted || !last.markCompleted {
		t.Fatalf("expected terminal completed with completion timestamp, got %+v", last)
	}

	if len(artifact.deleted) != 1 || artifact.deleted[0] != "uploads/a.log" {
		t.Fatalf("expected source artifact deleted, got %v", artifact.deleted)
	}
}

func TestPipelineBadTimestampLineIsDiscarded(t *testing.T) {
	// Grammar matches so the format is detected, but the timestamp is
	// unparseable: job completes with zero persisted entries.
	badLine := `127.0.0.1 - - [99/Zzz/2000:99:99:99 -0700] "GET / HTTP/1.0" 200 100 "-" "-"`
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{}
	artifact := &stubArtifactStore{lines: []string{badLine}}

	pipe := New(uploadRepo, entryRepo, artifact)
	processed, err := pipe.Run(context.Background(), queue.Job{UploadID: 3, Location: "uploads/b.log", Attempt: 1})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if processed != 0 {
		t.Fatalf("expected 0 processed entries, got %d", processed)
	}
	if entryRepo.inserts != 1 {
		t.Fatalf("expected one bulk insert call, got %d", entryRepo.inserts)
	}
	last := uploadRepo.changes[len(uploadRepo.changes)-1]
	if last.status != domain.UploadStatusCompleted {
		t.Fatalf("expected completed status, got %s", last.status)
	}
}

func TestPipelineUnknownFormatFailsPermanently(t *testing.T) {
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{}
	artifact := &stubArtifactStore{lines: []string{"not a log", "still not a log"}}

	pipe := New(uploadRepo, entryRepo, artifact)
	_, err := pipe.Run(context.Background(), queue.Job{UploadID: 9, Location: "uploads/c.log", Attempt: 1})

	var permanent *PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
	if entryRepo.inserts != 0 {
		t.Fatalf("expected no bulk insert, got %d", entryRepo.inserts)
	}

	last := uploadRepo.changes[len(uploadRepo.changes)-1]
	if !last.status.IsFailed() {
		t.Fatalf("expected failed status, got %s", last.status)
	}
	// The status carries the cause itself, not the retry classification.
	if last.status != domain.FailedStatus("could not detect log format") {
		t.Fatalf("expected failure cause in status, got %s", last.status)
	}
}

func TestPipelineEmptyFileFailsPermanently(t *testing.T) {
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{}
	artifact := &stubArtifactStore{lines: nil}

	pipe := New(uploadRepo, entryRepo, artifact)
	_, err := pipe.Run(context.Background(), queue.Job{UploadID: 4, Location: "uploads/d.log", Attempt: 1})

	var permanent *PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("expected PermanentError for empty file, got %v", err)
	}
}

func TestPipelineInsertFailureIsTransient(t *testing.T) {
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{insertErrs: []error{errors.New("connection reset")}}
	artifact := &stubArtifactStore{lines: []string{accessLine}}

	pipe := New(uploadRepo, entryRepo, artifact)
	_, err := pipe.Run(context.Background(), queue.Job{UploadID: 5, Location: "uploads/e.log", Attempt: 1})
	if err == nil {
		t.Fatalf("expected error from failed bulk insert")
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		t.Fatalf("storage failure must not be permanent: %v", err)
	}

	last := uploadRepo.changes[len(uploadRepo.changes)-1]
	if !last.status.IsFailed() || last.markCompleted {
		t.Fatalf("expected non-terminal failed status, got %+v", last)
	}
	if len(artifact.deleted) != 0 {
		t.Fatalf("artifact must survive a transient failure, got %v", artifact.deleted)
	}
}

// blockingEntryRepo simulates a write that outlives the job budget.
type blockingEntryRepo struct {
	stubEntryRepo
}

func (r *blockingEntryRepo) BulkInsert(ctx context.Context, uploadID int64, entries []domain.LogEntry) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestPipelineRecordsFailureAfterTimeout(t *testing.T) {
	// The bulk write blocks past the job deadline. The failed status is
	// written on a detached context, so it must land even though the job
	// context is already done.
	uploadRepo := &stubUploadRepo{}
	entryRepo := &blockingEntryRepo{}
	artifact := &stubArtifactStore{lines: []string{accessLine}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	pipe := New(uploadRepo, entryRepo, artifact)
	_, err := pipe.Run(ctx, queue.Job{UploadID: 10, Location: "uploads/t.log", Attempt: 3})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	if len(uploadRepo.changes) != 2 {
		t.Fatalf("expected processing then failed, got %+v", uploadRepo.changes)
	}
	last := uploadRepo.changes[1]
	if !last.status.IsFailed() || last.markCompleted {
		t.Fatalf("expected non-terminal failed status after timeout, got %+v", last)
	}
	if !strings.Contains(string(last.status), "context deadline exceeded") {
		t.Fatalf("expected timeout cause in status, got %s", last.status)
	}
}

func TestPipelineReprocessingDoesNotDuplicate(t *testing.T) {
	uploadRepo := &stubUploadRepo{}
	entryRepo := &stubEntryRepo{}
	artifact := &stubArtifactStore{lines: []string{accessLine}}

	pipe := New(uploadRepo, entryRepo, artifact)
	job := queue.Job{UploadID: 6, Location: "uploads/f.log", Attempt: 1}

	if _, err := pipe.Run(context.Background(), job); err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	if _, err := pipe.Run(context.Background(), job); err != nil {
		t.Fatalf("second run returned error: %v", err)
	}

	if entryRepo.inserts != 2 {
		t.Fatalf("expected two bulk insert calls, got %d", entryRepo.inserts)
	}
	if len(entryRepo.byUpload[6]) != 1 {
		t.Fatalf("redelivery duplicated entries: %d", len(entryRepo.byUpload[6]))
	}
}
