// Package logparse turns raw log lines into structured entries. Formats
// are registered in a fixed priority order; detection picks the first
// format whose grammar matches any line in a bounded sample.
package logparse

import (
	"errors"
	"fmt"

	"github.com/masterrlv/log-2/internal/domain"
)

// ErrUnknownFormat is returned when no registered format matches the
// sampled lines. Detection is deterministic, so this failure is
// permanent and must not be retried.
var ErrUnknownFormat = errors.New("could not detect log format")

// detectSampleSize bounds how many leading lines detection inspects.
const detectSampleSize = 10

// LineFunc parses one raw line into an entry, or reports a failure for
// that line alone.
type LineFunc func(line string) (domain.LogEntry, error)

type format struct {
	name    string
	matches func(line string) bool
	parse   LineFunc
}

// formats lists the known grammars in detection priority order. Adding
// a format means appending one entry here.
var formats = []format{
	{
		name:    FormatApache,
		matches: matchesAccessLog,
		parse:   parseAccessLogLine,
	},
}

// Detect inspects at most the first ten lines and returns the name of
// the first format whose grammar matches any of them. Empty input is
// undetermined, not an error distinct from no-match.
func Detect(lines []string) (string, error) {
	sample := lines
	if len(sample) > detectSampleSize {
		sample = sample[:detectSampleSize]
	}
	for _, f := range formats {
		for _, line := range sample {
			if f.matches(line) {
				return f.name, nil
			}
		}
	}
	return "", ErrUnknownFormat
}

// ParseLine parses one line using the named format. The pipeline treats
// a returned error as a failure of this line only, never of the batch.
func ParseLine(formatName, line string) (domain.LogEntry, error) {
	for _, f := range formats {
		if f.name == formatName {
			return f.parse(line)
		}
	}
	return domain.LogEntry{}, fmt.Errorf("unsupported log format %q", formatName)
}
