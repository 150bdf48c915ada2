package domain

import (
	"time"
)

// Log levels produced by the line parsers. Levels are normalized to
// uppercase before they are persisted or compared.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// LogEntry is one parsed log line persisted against an upload.
type LogEntry struct {
	ID        int64          `json:"id"`
	UploadID  int64          `json:"upload_id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"log_level"`
	Source    string         `json:"source"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"additional_fields,omitempty"`
}

// AccessLogFields holds the extra fields extracted from one web access
// log line. Parsers work with this closed struct internally; it is
// flattened to the open LogEntry.Fields map at the storage boundary.
type AccessLogFields struct {
	ClientIP  string
	Status    int
	Size      int
	Referer   string
	UserAgent string
}

// Map flattens the fields into the key/scalar shape stored as JSONB.
func (f AccessLogFields) Map() map[string]any {
	return map[string]any{
		"ip":         f.ClientIP,
		"status":     f.Status,
		"size":       f.Size,
		"referer":    f.Referer,
		"user_agent": f.UserAgent,
	}
}

// SearchFilter carries the optional predicates applied to log searches.
// Zero values impose no constraint.
type SearchFilter struct {
	Query     string
	Level     string
	Source    string
	StartTime *time.Time
	EndTime   *time.Time
}

// SearchResult is one page of matching entries plus pagination metadata.
type SearchResult struct {
	Logs       []LogEntry `json:"logs"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
}

// TimeSeriesPoint is one non-empty bucket in a time series aggregation.
type TimeSeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Count  int       `json:"count"`
}

// DistributionEntry counts entries sharing one value of the grouped field.
type DistributionEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopError is one ranked error message with its occurrence count.
type TopError struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
