package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/runningman84/zpool-scrub-checker/pkg/models"
)

const statusRecentScrub = `  pool: tank
 state: ONLINE
  scan: scrub repaired 0B in 00:10:21 with 0 errors on Sun Aug 10 00:34:12 2025
config:

	NAME        STATE     READ WRITE CKSUM
	tank        ONLINE       0     0     0

errors: No known data errors
`

const statusResilver = `  pool: tank
 state: DEGRADED
  scan: resilver in progress since Sun Aug 24 08:00:04 2025
	1.25T scanned at 1.2G/s, 512G issued at 500M/s, 2.50T total
	128G resilvered, 20.00% done, 01:08:10 to go
errors: No known data errors
`

const statusInProgress = `  pool: tank
 state: ONLINE
  scan: scrub in progress since Sun Aug 24 08:00:04 2025
	2.50T scanned at 2.1G/s, 1.25T issued at 1.0G/s, 5.00T total
	0B repaired, 25.00% done, 01:04:00 to go
errors: No known data errors
`

const statusCanceled = `  pool: tank
 state: ONLINE
  scan: scrub canceled on Tue Aug 19 11:02:44 2025
errors: No known data errors
`

const statusNoScanLine = `  pool: tank
 state: ONLINE
config:

	NAME        STATE     READ WRITE CKSUM
	tank        ONLINE       0     0     0

errors: No known data errors
`

const statusNoneRequested = `  pool: tank
 state: ONLINE
  scan: none requested
errors: No known data errors
`

const statusBadTimestamp = `  pool: tank
 state: ONLINE
  scan: scrub repaired 0B in 00:10:21 with 0 errors on whenever it was
errors: No known data errors
`

func TestClassifyRecentScrub(t *testing.T) {
	now := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)

	status, err := Classify("tank", statusRecentScrub, 7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if status.State != models.StateScanNotNeeded {
		t.Errorf("status.State = %v, want %v", status.State, models.StateScanNotNeeded)
	}
	if status.LastScanTime == nil {
		t.Fatal("status.LastScanTime = nil, want set")
	}
	if status.LastScanAge == nil {
		t.Fatal("status.LastScanAge = nil, want set")
	}

	wantTime := time.Date(2025, 8, 10, 0, 34, 12, 0, time.UTC)
	if !status.LastScanTime.Equal(wantTime) {
		t.Errorf("status.LastScanTime = %v, want %v", status.LastScanTime, wantTime)
	}
	if *status.LastScanAge != now.Sub(wantTime) {
		t.Errorf("status.LastScanAge = %v, want %v", *status.LastScanAge, now.Sub(wantTime))
	}
}

func TestClassifyOverdueScrub(t *testing.T) {
	now := time.Date(2025, 8, 20, 0, 34, 12, 0, time.UTC)

	status, err := Classify("tank", statusRecentScrub, 7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if status.State != models.StateScanNeeded {
		t.Errorf("status.State = %v, want %v", status.State, models.StateScanNeeded)
	}
	if status.LastScanTime == nil || status.LastScanAge == nil {
		t.Error("timestamp fields should be set for an overdue scrub")
	}
}

func TestClassifyThresholdBoundary(t *testing.T) {
	// The scrub in the fixture finished Aug 10 00:34:12 2025.
	finished := time.Date(2025, 8, 10, 0, 34, 12, 0, time.UTC)
	needed := 7 * 24 * time.Hour

	// Exactly at the threshold the scrub still counts as recent.
	status, err := Classify("tank", statusRecentScrub, needed, finished.Add(needed))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if status.State != models.StateScanNotNeeded {
		t.Errorf("at threshold: status.State = %v, want %v", status.State, models.StateScanNotNeeded)
	}

	// One second past the threshold it does not.
	status, err = Classify("tank", statusRecentScrub, needed, finished.Add(needed+time.Second))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if status.State != models.StateScanNeeded {
		t.Errorf("past threshold: status.State = %v, want %v", status.State, models.StateScanNeeded)
	}
}

func TestClassifyResilver(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	status, err := Classify("tank", statusResilver, 7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if status.State != models.StateResilverInProgress {
		t.Errorf("status.State = %v, want %v", status.State, models.StateResilverInProgress)
	}
	if status.Note != "deferring scrub check until resilver is complete" {
		t.Errorf("status.Note = %q, want resilver deferral note", status.Note)
	}
	if status.LastScanTime != nil || status.LastScanAge != nil {
		t.Error("timestamp fields should be absent during a resilver")
	}
}

func TestClassifyScrubInProgress(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	status, err := Classify("tank", statusInProgress, 7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if status.State != models.StateScanInProgress {
		t.Errorf("status.State = %v, want %v", status.State, models.StateScanInProgress)
	}
	if status.LastScanTime != nil || status.LastScanAge != nil {
		t.Error("timestamp fields should be absent while a scrub runs")
	}
}

func TestClassifyCanceledScrub(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	// A canceled scrub always needs a new one, whatever the threshold.
	for _, needed := range []time.Duration{time.Hour, 7 * 24 * time.Hour, 365 * 24 * time.Hour} {
		status, err := Classify("tank", statusCanceled, needed, now)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}

		if status.State != models.StateScanNeeded {
			t.Errorf("needed=%v: status.State = %v, want %v", needed, status.State, models.StateScanNeeded)
		}
		if status.LastScanTime != nil || status.LastScanAge != nil {
			t.Errorf("needed=%v: timestamp fields should be absent after a canceled scrub", needed)
		}
	}
}

func TestClassifyMissingScanLine(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	status, err := Classify("tank", statusNoScanLine, 7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Classify() error = %v, a missing scan line must not be fatal", err)
	}

	if status.State != models.StateError {
		t.Errorf("status.State = %v, want %v", status.State, models.StateError)
	}
	if status.Note == "" {
		t.Error("status.Note should explain why the scan line was not found")
	}
	if status.LastScanTime != nil || status.LastScanAge != nil {
		t.Error("timestamp fields should be absent in the error state")
	}
}

func TestClassifyUnrecognizedScanLine(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	_, err := Classify("tank", statusNoneRequested, 7*24*time.Hour, now)
	if err == nil {
		t.Fatal("Classify() expected error for unrecognized scan line, got nil")
	}

	var formatErr *UnrecognizedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Classify() error = %T, want *UnrecognizedFormatError", err)
	}
	if formatErr.Pool != "tank" {
		t.Errorf("formatErr.Pool = %q, want tank", formatErr.Pool)
	}
	if formatErr.Line == "" {
		t.Error("formatErr.Line should carry the offending line")
	}
}

func TestClassifyBadTimestamp(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	_, err := Classify("tank", statusBadTimestamp, 7*24*time.Hour, now)
	if err == nil {
		t.Fatal("Classify() expected error for unparseable timestamp, got nil")
	}

	var tsErr *TimestampParseError
	if !errors.As(err, &tsErr) {
		t.Fatalf("Classify() error = %T, want *TimestampParseError", err)
	}
	if tsErr.Pool != "tank" {
		t.Errorf("tsErr.Pool = %q, want tank", tsErr.Pool)
	}
}

func TestClassifySingleDigitDay(t *testing.T) {
	// zpool pads single-digit days with an extra space.
	raw := `  pool: tank
 state: ONLINE
  scan: scrub repaired 0B in 00:10:21 with 0 errors on Sun Jun  8 14:22:03 2025
errors: No known data errors
`
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	status, err := Classify("tank", raw, 7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	wantTime := time.Date(2025, 6, 8, 14, 22, 3, 0, time.UTC)
	if status.LastScanTime == nil || !status.LastScanTime.Equal(wantTime) {
		t.Errorf("status.LastScanTime = %v, want %v", status.LastScanTime, wantTime)
	}
}

func TestClassifyTimestampPairing(t *testing.T) {
	now := time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC)

	inputs := []string{
		statusRecentScrub,
		statusResilver,
		statusInProgress,
		statusCanceled,
		statusNoScanLine,
	}

	for _, raw := range inputs {
		status, err := Classify("tank", raw, 7*24*time.Hour, now)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}

		if (status.LastScanTime == nil) != (status.LastScanAge == nil) {
			t.Errorf("state %v: LastScanTime and LastScanAge must be set together (time=%v age=%v)",
				status.State, status.LastScanTime, status.LastScanAge)
		}
	}
}

func TestScanLine(t *testing.T) {
	line, ok := ScanLine(statusRecentScrub)
	if !ok {
		t.Fatal("ScanLine() did not find the scan line")
	}
	want := "scan: scrub repaired 0B in 00:10:21 with 0 errors on Sun Aug 10 00:34:12 2025"
	if line != want {
		t.Errorf("ScanLine() = %q, want %q", line, want)
	}

	if _, ok := ScanLine(statusNoScanLine); ok {
		t.Error("ScanLine() found a scan line in output without one")
	}
}
