// Package search validates read-side queries and composes them against
// the record store: filtered search plus the three aggregation shapes.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/masterrlv/log-2/internal/domain"
	"github.com/masterrlv/log-2/internal/repository"
)

// ErrInvalidInput marks a request rejected before any work begins, such
// as an unknown bucket granularity or a non-positive page size.
var ErrInvalidInput = errors.New("invalid input")

var validGranularities = map[string]bool{
	"minute": true,
	"hour":   true,
	"day":    true,
}

var validDistributionFields = map[string]bool{
	"log_level": true,
	"source":    true,
}

// Service is the query composer over persisted log entries.
type Service struct {
	entries repository.LogEntryRepository
}

// NewService creates a new search service.
func NewService(entries repository.LogEntryRepository) *Service {
	return &Service{entries: entries}
}

// TotalPages computes ceil(total / perPage); zero matches mean zero
// pages.
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// SearchLogs returns one page of matching entries plus the total match
// count independent of pagination. An empty result set is valid.
func (s *Service) SearchLogs(ctx context.Context, filter domain.SearchFilter, page, perPage int) (domain.SearchResult, error) {
	if page < 1 {
		return domain.SearchResult{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidInput)
	}
	if perPage <= 0 {
		return domain.SearchResult{}, fmt.Errorf("%w: per_page must be > 0", ErrInvalidInput)
	}

	offset := (page - 1) * perPage
	logs, total, err := s.entries.Search(ctx, filter, perPage, offset)
	if err != nil {
		return domain.SearchResult{}, err
	}

	return domain.SearchResult{
		Logs:       logs,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: TotalPages(total, perPage),
	}, nil
}

// TimeSeries buckets matching entries over a mandatory time range.
// Buckets without entries never appear in the result.
func (s *Service) TimeSeries(ctx context.Context, start, end time.Time, granularity, level, source string) ([]domain.TimeSeriesPoint, error) {
	if !validGranularities[granularity] {
		return nil, fmt.Errorf("%w: granularity must be one of minute, hour, day", ErrInvalidInput)
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end times are required", ErrInvalidInput)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end time precedes start time", ErrInvalidInput)
	}

	return s.entries.TimeSeries(ctx, start, end, granularity, strings.ToUpper(level), source)
}

// Distribution counts entries per distinct value of the grouped field,
// optionally restricted to a time range.
func (s *Service) Distribution(ctx context.Context, field string, start, end *time.Time) ([]domain.DistributionEntry, error) {
	if !validDistributionFields[field] {
		return nil, fmt.Errorf("%w: field must be one of log_level, source", ErrInvalidInput)
	}
	return s.entries.Distribution(ctx, field, start, end)
}

// TopErrors ranks ERROR messages by occurrence count, descending.
func (s *Service) TopErrors(ctx context.Context, limit int, start, end *time.Time) ([]domain.TopError, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0", ErrInvalidInput)
	}
	return s.entries.TopErrors(ctx, limit, start, end)
}
