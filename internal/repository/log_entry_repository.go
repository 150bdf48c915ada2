package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/masterrlv/log-2/internal/db"
	"github.com/masterrlv/log-2/internal/domain"
)

// distributionColumns whitelists the groupable fields. Values are the
// column names interpolated into aggregation SQL; anything outside this
// map is rejected before query construction.
var distributionColumns = map[string]string{
	"log_level": "log_level",
	"source":    "source",
}

type logEntryRepository struct {
	conn *db.Connection
}

// NewLogEntryRepository wires a repository backed by the shared
// connection pool.
func NewLogEntryRepository(conn *db.Connection) LogEntryRepository {
	return &logEntryRepository{conn: conn}
}

// BulkInsert persists all entries for one ingestion run in a single
// transaction. Any rows from an earlier attempt for the same upload are
// replaced, which keeps reprocessing under at-least-once delivery from
// duplicating records.
func (r *logEntryRepository) BulkInsert(ctx context.Context, uploadID int64, entries []domain.LogEntry) error {
	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		var fieldsJSON []byte
		if entry.Fields != nil {
			var err error
			fieldsJSON, err = json.Marshal(entry.Fields)
			if err != nil {
				return fmt.Errorf("failed to marshal additional fields: %w", err)
			}
		}
		rows = append(rows, []any{
			uploadID,
			entry.Timestamp,
			entry.Level,
			entry.Source,
			entry.Message,
			fieldsJSON,
		})
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM log_entries WHERE upload_id = $1`, uploadID); err != nil {
			return fmt.Errorf("failed to clear previous entries: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		if _, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"log_entries"},
			[]string{"upload_id", "timestamp", "log_level", "source", "message", "additional_fields"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("failed to bulk insert log entries: %w", err)
		}
		return nil
	})
}

// Search returns one page of matching entries in id order along with
// the total match count independent of pagination.
func (r *logEntryRepository) Search(ctx context.Context, filter domain.SearchFilter, limit, offset int) ([]domain.LogEntry, int, error) {
	predicate, args := searchPredicate(filter)

	query := fmt.Sprintf(
		`SELECT id, upload_id, timestamp, log_level, source, message, additional_fields,
		        count(*) OVER() AS total_count
		 FROM log_entries
		 %s
		 ORDER BY id
		 LIMIT $%d OFFSET $%d`,
		predicate, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.conn.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search log entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LogEntry{}
	total := 0
	for rows.Next() {
		entry, rowTotal, scanErr := scanLogEntryWithTotal(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan log entry: %w", scanErr)
		}
		total = rowTotal
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, fmt.Errorf("failed to iterate log entries: %w", rowsErr)
	}

	// A page past the end returns no rows; fall back to a bare count so
	// the reported total stays accurate.
	if len(entries) == 0 {
		countQuery := fmt.Sprintf(`SELECT count(*) FROM log_entries %s`, predicate)
		if err := r.conn.Pool.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("failed to count log entries: %w", err)
		}
	}

	return entries, total, nil
}

func (r *logEntryRepository) ListByUpload(ctx context.Context, uploadID int64, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, upload_id, timestamp, log_level, source, message, additional_fields
		 FROM log_entries
		 WHERE upload_id = $1
		 ORDER BY id
		 LIMIT $2`,
		uploadID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LogEntry{}
	for rows.Next() {
		entry, scanErr := scanLogEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate log entries: %w", rowsErr)
	}

	return entries, nil
}

// TimeSeries buckets matching entries with date_trunc. Only buckets
// containing at least one entry come back; nothing synthesizes zeros.
func (r *logEntryRepository) TimeSeries(ctx context.Context, start, end time.Time, granularity string, level, source string) ([]domain.TimeSeriesPoint, error) {
	args := []any{granularity, start, end}
	conditions := []string{"timestamp >= $2", "timestamp <= $3"}

	if level != "" {
		args = append(args, level)
		conditions = append(conditions, fmt.Sprintf("log_level = $%d", len(args)))
	}
	if source != "" {
		args = append(args, source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}

	query := fmt.Sprintf(
		`SELECT date_trunc($1, timestamp) AS bucket, count(*)
		 FROM log_entries
		 %s
		 GROUP BY bucket
		 ORDER BY bucket`,
		whereClause(conditions),
	)

	rows, err := r.conn.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time series: %w", err)
	}
	defer rows.Close()

	points := []domain.TimeSeriesPoint{}
	for rows.Next() {
		var point domain.TimeSeriesPoint
		if scanErr := rows.Scan(&point.Bucket, &point.Count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan time series point: %w", scanErr)
		}
		points = append(points, point)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate time series: %w", rowsErr)
	}

	return points, nil
}

func (r *logEntryRepository) Distribution(ctx context.Context, field string, start, end *time.Time) ([]domain.DistributionEntry, error) {
	column, ok := distributionColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported distribution field %q", field)
	}

	conditions, args := rangePredicate(nil, nil, start, end)
	query := fmt.Sprintf(
		`SELECT %s, count(*)
		 FROM log_entries
		 %s
		 GROUP BY %s
		 ORDER BY count(*) DESC, %s`,
		column, whereClause(conditions), column, column,
	)

	rows, err := r.conn.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}
	defer rows.Close()

	result := []domain.DistributionEntry{}
	for rows.Next() {
		var entry domain.DistributionEntry
		if scanErr := rows.Scan(&entry.Value, &entry.Count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan distribution entry: %w", scanErr)
		}
		result = append(result, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate distribution: %w", rowsErr)
	}

	return result, nil
}

func (r *logEntryRepository) TopErrors(ctx context.Context, limit int, start, end *time.Time) ([]domain.TopError, error) {
	args := []any{domain.LevelError}
	conditions := []string{"log_level = $1"}
	conditions, args = rangePredicate(conditions, args, start, end)

	query := fmt.Sprintf(
		`SELECT message, count(*)
		 FROM log_entries
		 %s
		 GROUP BY message
		 ORDER BY count(*) DESC, message
		 LIMIT $%d`,
		whereClause(conditions), len(args)+1,
	)
	args = append(args, limit)

	rows, err := r.conn.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top errors: %w", err)
	}
	defer rows.Close()

	result := []domain.TopError{}
	for rows.Next() {
		var entry domain.TopError
		if scanErr := rows.Scan(&entry.Message, &entry.Count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan top error: %w", scanErr)
		}
		result = append(result, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate top errors: %w", rowsErr)
	}

	return result, nil
}

func scanLogEntry(row pgx.Row) (domain.LogEntry, error) {
	var (
		entry      domain.LogEntry
		fieldsJSON []byte
	)
	if err := row.Scan(
		&entry.ID,
		&entry.UploadID,
		&entry.Timestamp,
		&entry.Level,
		&entry.Source,
		&entry.Message,
		&fieldsJSON,
	); err != nil {
		return domain.LogEntry{}, err
	}
	if err := unmarshalFields(&entry, fieldsJSON); err != nil {
		return domain.LogEntry{}, err
	}
	return entry, nil
}

func scanLogEntryWithTotal(row pgx.Row) (domain.LogEntry, int, error) {
	var (
		entry      domain.LogEntry
		fieldsJSON []byte
		total      int
	)
	if err := row.Scan(
		&entry.ID,
		&entry.UploadID,
		&entry.Timestamp,
		&entry.Level,
		&entry.Source,
		&entry.Message,
		&fieldsJSON,
		&total,
	); err != nil {
		return domain.LogEntry{}, 0, err
	}
	if err := unmarshalFields(&entry, fieldsJSON); err != nil {
		return domain.LogEntry{}, 0, err
	}
	return entry, total, nil
}

func unmarshalFields(entry *domain.LogEntry, fieldsJSON []byte) error {
	if len(fieldsJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(fieldsJSON, &entry.Fields); err != nil {
		return fmt.Errorf("failed to unmarshal additional fields: %w", err)
	}
	return nil
}
