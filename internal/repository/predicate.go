package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/masterrlv/log-2/internal/domain"
)

// searchPredicate renders the optional search filters as a WHERE clause
// with positional arguments. Absent filters contribute nothing; an
// empty filter yields an empty clause.
func searchPredicate(filter domain.SearchFilter) (string, []any) {
	conditions := []string{}
	args := []any{}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conditions = append(conditions, fmt.Sprintf("message ILIKE $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, strings.ToUpper(filter.Level))
		conditions = append(conditions, fmt.Sprintf("log_level = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.StartTime != nil {
		args = append(args, *filter.StartTime)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.EndTime != nil {
		args = append(args, *filter.EndTime)
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// rangePredicate renders an optional inclusive time range, continuing
// the positional argument numbering from the supplied args.
func rangePredicate(conditions []string, args []any, start, end *time.Time) ([]string, []any) {
	if start != nil {
		args = append(args, *start)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if end != nil {
		args = append(args, *end)
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}
	return conditions, args
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}
