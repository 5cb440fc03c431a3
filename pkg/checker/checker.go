package checker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/runningman84/zpool-scrub-checker/pkg/config"
	"github.com/runningman84/zpool-scrub-checker/pkg/models"
	"github.com/runningman84/zpool-scrub-checker/pkg/parser"
	"github.com/runningman84/zpool-scrub-checker/pkg/zpool"
	"k8s.io/klog/v2"
)

// PoolClient is the surface of the zpool manager the checker needs
type PoolClient interface {
	ListPools() ([]string, error)
	Status(poolName string) (string, error)
	StartScrub(poolName string) error
	ScrubCommand(poolName string) []string
}

// Checker classifies every target pool and starts at most one scrub
// per run. Pools are processed sequentially in input order; when
// several pools need a scrub, only the last one encountered is started
// this run, the others stay eligible for the next run.
type Checker struct {
	config *config.Config
	client PoolClient
	out    io.Writer
}

// NewChecker creates a new checker instance
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{
		config: cfg,
		client: zpool.NewManager(cfg),
		out:    os.Stdout,
	}
}

// Run checks the given pools (all known pools if empty) and returns
// the schedule decision. Collaborator failures and malformed status
// output abort the run; a pool whose status simply lacks a scan line
// is reported and skipped.
func (c *Checker) Run(pools []string, now time.Time) (*models.ScheduleDecision, error) {
	needed := c.config.NeededThreshold()
	warn := c.config.WarnThreshold()

	c.logConfig()

	if len(pools) == 0 {
		all, err := c.client.ListPools()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate pools: %w", err)
		}
		for _, name := range all {
			if c.config.IsPoolAllowed(name) {
				pools = append(pools, name)
			} else {
				klog.Infof("Skipping pool %s (not in whitelist)", name)
			}
		}
	}

	decision := &models.ScheduleDecision{}

	for _, name := range pools {
		raw, err := c.client.Status(name)
		if err != nil {
			return nil, err
		}

		if c.config.Verbose {
			if line, ok := parser.ScanLine(raw); ok {
				klog.Infof("Pool %s scan line: %s", name, line)
			} else {
				klog.Infof("Pool %s status output has no scan line", name)
			}
		}

		status, err := parser.Classify(name, raw, needed, now)
		if err != nil {
			return nil, err
		}

		c.record(status, warn, decision)
		c.report(status)
	}

	if err := c.schedule(decision); err != nil {
		return nil, err
	}

	return decision, nil
}

func (c *Checker) logConfig() {
	klog.Infof("Needed threshold: %d day(s)", c.config.NeededDays)
	klog.Infof("Warn threshold: %d day(s)", c.config.WarnDays)
	if len(c.config.PoolWhitelist) > 0 {
		klog.Infof("Pool whitelist: %v", c.config.PoolWhitelist)
	}
	if c.config.DryRun {
		klog.Infof("Dry-run mode enabled")
	}
}

// record folds one pool's status into the decision and attaches the
// age annotations. Only a warn-threshold breach raises the exit code;
// an unknown last scan time does not.
func (c *Checker) record(status *models.PoolStatus, warn time.Duration, decision *models.ScheduleDecision) {
	switch status.State {
	case models.StateScanInProgress:
		if decision.PoolScanning != "" {
			// The single-scan policy assumes at most one pool is ever
			// mid-scan; an external actor must have started another.
			klog.Warningf(" Multiple pools report a running scrub (%s and %s), tracking %s",
				decision.PoolScanning, status.PoolName, status.PoolName)
		}
		decision.PoolScanning = status.PoolName

	case models.StateScanNeeded:
		decision.PoolsNeedingScan = append(decision.PoolsNeedingScan, status.PoolName)
		if status.LastScanAge == nil {
			status.Note = "unable to determine the last scan time"
		} else if *status.LastScanAge >= warn {
			days := int(status.LastScanAge.Hours() / 24)
			status.Note = fmt.Sprintf("pool has not been scanned for %d days", days)
			decision.ExitCode = 1
		}

	case models.StateScanNotNeeded:
		if status.LastScanAge != nil {
			days := int(status.LastScanAge.Hours() / 24)
			klog.Infof("Pool %s last scrub completed %d day(s) ago (finished: %s)",
				status.PoolName, days, status.LastScanTime.Format("2006-01-02 15:04:05"))
		}
	}
}

// report prints the per-pool status line to stdout
func (c *Checker) report(status *models.PoolStatus) {
	line := fmt.Sprintf("zpool '%s': %s", status.PoolName, status.State)
	if status.Note != "" {
		line += ": " + status.Note
	}
	fmt.Fprintln(c.out, line)
}

// schedule applies the single-scan policy: start a scrub for the last
// pool seen needing one, unless any pool is already mid-scan.
func (c *Checker) schedule(decision *models.ScheduleDecision) error {
	if len(decision.PoolsNeedingScan) == 0 {
		return nil
	}

	candidate := decision.PoolsNeedingScan[len(decision.PoolsNeedingScan)-1]

	if decision.PoolScanning != "" {
		fmt.Fprintf(c.out, "not starting scrub of pool '%s': pool '%s' is still being scrubbed\n",
			candidate, decision.PoolScanning)
		return nil
	}

	decision.ChosenToStart = candidate
	if superseded := decision.PoolsNeedingScan[:len(decision.PoolsNeedingScan)-1]; len(superseded) > 0 {
		klog.Infof("Deferring scrub of pool(s) %s until a later run", strings.Join(superseded, ", "))
	}

	if c.config.DryRun {
		fmt.Fprintf(c.out, "[DRY-RUN] Would run: %s\n", strings.Join(c.client.ScrubCommand(candidate), " "))
		return nil
	}

	if err := c.client.StartScrub(candidate); err != nil {
		return fmt.Errorf("failed to start scrub: %w", err)
	}
	fmt.Fprintf(c.out, "started scrub of pool '%s'\n", candidate)

	return nil
}
