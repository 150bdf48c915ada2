package logparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/masterrlv/log-2/internal/domain"
)

// FormatApache identifies the combined web access log grammar:
// <ip> - - [<timestamp>] "<request>" <status> <size> "<referer>" "<user-agent>"
const FormatApache = "apache"

var accessLogPattern = regexp.MustCompile(
	`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}) - - \[(.*?)\] "(.*?)" (\d{3}) (\d+) "(.*?)" "(.*?)"`,
)

// accessLogTimeLayout matches timestamps like 10/Oct/2000:13:55:36 -0700.
const accessLogTimeLayout = "02/Jan/2006:15:04:05 -0700"

func matchesAccessLog(line string) bool {
	return accessLogPattern.MatchString(line)
}

// parseAccessLogLine extracts one entry from a combined access log line.
// The log level is derived from the HTTP status: anything below 400 is
// INFO, the rest ERROR. A timestamp that fails to parse degrades the
// whole line to a parse failure; an entry is never built around a
// default timestamp.
func parseAccessLogLine(line string) (domain.LogEntry, error) {
	groups := accessLogPattern.FindStringSubmatch(line)
	if groups == nil {
		return domain.LogEntry{}, fmt.Errorf("line does not match access log format")
	}

	ip, timestampRaw, request := groups[1], groups[2], groups[3]
	statusRaw, sizeRaw := groups[4], groups[5]
	referer, userAgent := groups[6], groups[7]

	timestamp, err := time.Parse(accessLogTimeLayout, timestampRaw)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("invalid timestamp %q: %w", timestampRaw, err)
	}

	status, err := strconv.Atoi(statusRaw)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("invalid status code %q: %w", statusRaw, err)
	}
	size, err := strconv.Atoi(sizeRaw)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("invalid response size %q: %w", sizeRaw, err)
	}

	level := domain.LevelInfo
	if status >= 400 {
		level = domain.LevelError
	}

	fields := domain.AccessLogFields{
		ClientIP:  ip,
		Status:    status,
		Size:      size,
		Referer:   referer,
		UserAgent: userAgent,
	}

	return domain.LogEntry{
		Timestamp: timestamp,
		Level:     level,
		Source:    FormatApache,
		Message:   request,
		Fields:    fields.Map(),
	}, nil
}
