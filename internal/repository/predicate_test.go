package repository

import (
	"testing"
	"time"

	"github.com/masterrlv/log-2/internal/domain"
)

func TestSearchPredicateEmpty(t *testing.T) {
	clause, args := searchPredicate(domain.SearchFilter{})
	if clause != "" {
		t.Fatalf("expected empty clause, got %q", clause)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestSearchPredicateAllFilters(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	filter := domain.SearchFilter{
		Query:     "timeout",
		Level:     "error",
		Source:    "apache",
		StartTime: &start,
		EndTime:   &end,
	}

	clause, args := searchPredicate(filter)
	want := "WHERE message ILIKE $1 AND log_level = $2 AND source = $3 AND timestamp >= $4 AND timestamp <= $5"
	if clause != want {
		t.Fatalf("unexpected clause:\n got  %q\n want %q", clause, want)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	if args[0] != "%timeout%" {
		t.Fatalf("expected substring pattern, got %v", args[0])
	}
	if args[1] != "ERROR" {
		t.Fatalf("expected level upper-cased, got %v", args[1])
	}
}

func TestSearchPredicateNumbersArgsSequentially(t *testing.T) {
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	filter := domain.SearchFilter{Source: "apache", EndTime: &end}

	clause, args := searchPredicate(filter)
	want := "WHERE source = $1 AND timestamp <= $2"
	if clause != want {
		t.Fatalf("unexpected clause: %q", clause)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}

func TestRangePredicateContinuesNumbering(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	conditions := []string{"log_level = $1"}
	args := []any{"ERROR"}

	conditions, args = rangePredicate(conditions, args, &start, nil)
	if len(conditions) != 2 || conditions[1] != "timestamp >= $2" {
		t.Fatalf("unexpected conditions: %v", conditions)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}

	if got := whereClause(conditions); got != "WHERE log_level = $1 AND timestamp >= $2" {
		t.Fatalf("unexpected where clause: %q", got)
	}
}

func TestWhereClauseEmpty(t *testing.T) {
	if got := whereClause(nil); got != "" {
		t.Fatalf("expected empty clause, got %q", got)
	}
}
