package models

import "time"

// ScrubState is the canonical classification of a pool's scrub status.
type ScrubState string

const (
	// StateResilverInProgress means a resilver is running and the scrub
	// check is deferred until it completes.
	StateResilverInProgress ScrubState = "resilver-in-progress"
	// StateScanNotNeeded means the last scrub completed within the
	// needed threshold.
	StateScanNotNeeded ScrubState = "scan-not-needed"
	// StateScanNeeded means the pool is due for a scrub, either because
	// the last one is too old or because the last scrub was canceled
	// and its completion time is unknown.
	StateScanNeeded ScrubState = "scan-needed"
	// StateScanInProgress means a scrub is currently running.
	StateScanInProgress ScrubState = "scan-in-progress"
	// StateError means the status text carried no recognizable scan
	// line; the pool is reported but never scheduled.
	StateError ScrubState = "error"
)

// PoolStatus is the classification result for one pool. It is built
// fresh each run and never mutated afterwards. LastScanTime and
// LastScanAge are either both set or both nil.
type PoolStatus struct {
	PoolName     string
	State        ScrubState
	LastScanTime *time.Time
	LastScanAge  *time.Duration
	Note         string
}

// ScheduleDecision is the aggregate outcome of one checker run.
type ScheduleDecision struct {
	PoolsNeedingScan []string
	PoolScanning     string // at most one pool observed mid-scan, "" if none
	ChosenToStart    string // pool selected for a new scrub this run, "" if none
	ExitCode         int    // 0 all pools within threshold, 1 warn threshold breached
}
