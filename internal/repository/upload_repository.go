package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/masterrlv/log-2/internal/domain"
)

// ErrUploadNotFound is returned when no upload exists for the given id.
var ErrUploadNotFound = errors.New("upload not found")

type uploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository wires a repository backed by pgxpool.
func NewUploadRepository(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepository{pool: pool}
}

func (r *uploadRepository) Create(ctx context.Context, userID uuid.UUID, filename string, size int64) (domain.Upload, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO uploads (user_id, filename, size, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, filename, size, status, upload_timestamp, completed_at`,
		userID,
		filename,
		size,
		domain.UploadStatusPending,
	)

	upload, err := scanUpload(row)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("failed to create upload: %w", err)
	}
	return upload, nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id int64) (domain.Upload, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, user_id, filename, size, status, upload_timestamp, completed_at
		 FROM uploads
		 WHERE id = $1`,
		id,
	)

	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Upload{}, ErrUploadNotFound
		}
		return domain.Upload{}, fmt.Errorf("failed to get upload: %w", err)
	}
	return upload, nil
}

func (r *uploadRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Upload, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, user_id, filename, size, status, upload_timestamp, completed_at
		 FROM uploads
		 WHERE user_id = $1
		 ORDER BY upload_timestamp DESC
		 LIMIT $2 OFFSET $3`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []domain.Upload{}
	for rows.Next() {
		upload, scanErr := scanUpload(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", scanErr)
		}
		uploads = append(uploads, upload)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate uploads: %w", rowsErr)
	}

	return uploads, nil
}

// SetStatus records a status transition. completed_at is written only
// alongside the terminal success status and cleared otherwise, so the
// invariant "completed_at set iff completed" holds across retries.
func (r *uploadRepository) SetStatus(ctx context.Context, id int64, status domain.UploadStatus, markCompleted bool) error {
	var err error
	if markCompleted {
		_, err = r.pool.Exec(
			ctx,
			`UPDATE uploads SET status = $1, completed_at = now() WHERE id = $2`,
			status,
			id,
		)
	} else {
		_, err = r.pool.Exec(
			ctx,
			`UPDATE uploads SET status = $1, completed_at = NULL WHERE id = $2`,
			status,
			id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update upload status to %s: %w", status, err)
	}
	return nil
}

func scanUpload(row pgx.Row) (domain.Upload, error) {
	var (
		upload      domain.Upload
		status      string
		completedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&upload.ID,
		&upload.UserID,
		&upload.Filename,
		&upload.Size,
		&status,
		&upload.UploadedAt,
		&completedAt,
	); err != nil {
		return domain.Upload{}, err
	}

	upload.Status = domain.UploadStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		upload.CompletedAt = &t
	}
	return upload, nil
}
