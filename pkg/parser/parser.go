package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/runningman84/zpool-scrub-checker/pkg/models"
)

// scanTimeLayout is the timestamp format embedded in scrub completion
// lines, e.g. "... with 0 errors on Sun Jun  8 14:22:03 2025". The
// leading weekday token is dropped before parsing. zpool prints local
// time without a zone, so the timestamp is trusted as-is.
const scanTimeLayout = "Jan 2 15:04:05 2006"

var (
	resilverPattern   = regexp.MustCompile(`resilver in progress`)
	repairedPattern   = regexp.MustCompile(`scrub repaired .* with .* errors on (.+)$`)
	inProgressPattern = regexp.MustCompile(`scrub in progress`)
	canceledPattern   = regexp.MustCompile(`scrub canceled`)
)

// UnrecognizedFormatError is returned when a scan line is present but
// matches none of the known patterns. This is fatal for the whole run:
// a malformed line means the tool output can no longer be trusted.
type UnrecognizedFormatError struct {
	Pool string
	Line string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("pool %s: unrecognized scan line format: %q", e.Pool, e.Line)
}

// TimestampParseError is returned when the completion timestamp on a
// scrub line cannot be parsed. Fatal for the whole run.
type TimestampParseError struct {
	Pool  string
	Value string
	Err   error
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("pool %s: cannot parse scrub timestamp %q: %v", e.Pool, e.Value, e.Err)
}

func (e *TimestampParseError) Unwrap() error {
	return e.Err
}

// ScanLine extracts the scan-related line from raw zpool status output.
// Returns false if no such line exists.
func ScanLine(raw string) (string, bool) {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "scan:") {
			return trimmed, true
		}
	}
	return "", false
}

// Classify turns one pool's raw status text into a PoolStatus. It is a
// pure function of its inputs; the caller supplies "now" so that age
// computation is deterministic. Classification is first-match-wins:
// resilver, completed scrub, scrub in progress, canceled scrub. A
// missing scan line yields the soft error state, a present but
// unrecognized one is a hard failure.
func Classify(poolName, raw string, needed time.Duration, now time.Time) (*models.PoolStatus, error) {
	line, ok := ScanLine(raw)
	if !ok {
		return &models.PoolStatus{
			PoolName: poolName,
			State:    models.StateError,
			Note:     "no scan line found in status output",
		}, nil
	}

	switch {
	case resilverPattern.MatchString(line):
		return &models.PoolStatus{
			PoolName: poolName,
			State:    models.StateResilverInProgress,
			Note:     "deferring scrub check until resilver is complete",
		}, nil

	case repairedPattern.MatchString(line):
		matches := repairedPattern.FindStringSubmatch(line)
		lastScan, err := parseScanTime(matches[1])
		if err != nil {
			return nil, &TimestampParseError{Pool: poolName, Value: strings.TrimSpace(matches[1]), Err: err}
		}
		age := now.Sub(lastScan)
		state := models.StateScanNotNeeded
		if age > needed {
			state = models.StateScanNeeded
		}
		return &models.PoolStatus{
			PoolName:     poolName,
			State:        state,
			LastScanTime: &lastScan,
			LastScanAge:  &age,
		}, nil

	case inProgressPattern.MatchString(line):
		return &models.PoolStatus{
			PoolName: poolName,
			State:    models.StateScanInProgress,
		}, nil

	case canceledPattern.MatchString(line):
		// Canceled scrub leaves the last completion time unknown.
		return &models.PoolStatus{
			PoolName: poolName,
			State:    models.StateScanNeeded,
		}, nil
	}

	return nil, &UnrecognizedFormatError{Pool: poolName, Line: line}
}

// parseScanTime parses the trailing timestamp of a scrub line. The
// weekday token zpool prints ahead of the month is skipped.
func parseScanTime(value string) (time.Time, error) {
	fields := strings.Fields(value)
	if len(fields) == 5 {
		fields = fields[1:]
	}
	return time.Parse(scanTimeLayout, strings.Join(fields, " "))
}
