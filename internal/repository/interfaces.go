package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/masterrlv/log-2/internal/domain"
)

// UploadRepository persists uploads and tracks their job status. Status
// updates enforce that completed_at is set exactly when the upload
// reaches terminal success.
type UploadRepository interface {
	Create(ctx context.Context, userID uuid.UUID, filename string, size int64) (domain.Upload, error)
	GetByID(ctx context.Context, id int64) (domain.Upload, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Upload, error)
	SetStatus(ctx context.Context, id int64, status domain.UploadStatus, markCompleted bool) error
}

// LogEntryRepository provides bulk persistence plus the filtered and
// aggregated reads backing search and analytics.
type LogEntryRepository interface {
	BulkInsert(ctx context.Context, uploadID int64, entries []domain.LogEntry) error
	Search(ctx context.Context, filter domain.SearchFilter, limit, offset int) ([]domain.LogEntry, int, error)
	ListByUpload(ctx context.Context, uploadID int64, limit int) ([]domain.LogEntry, error)
	TimeSeries(ctx context.Context, start, end time.Time, granularity string, level, source string) ([]domain.TimeSeriesPoint, error)
	Distribution(ctx context.Context, field string, start, end *time.Time) ([]domain.DistributionEntry, error)
	TopErrors(ctx context.Context, limit int, start, end *time.Time) ([]domain.TopError, error)
}
