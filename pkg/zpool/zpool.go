package zpool

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/runningman84/zpool-scrub-checker/pkg/config"
	"k8s.io/klog/v2"
)

// Manager handles zpool operations
type Manager struct {
	config *config.Config
}

// NewManager creates a new zpool manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// logCommand logs the command being executed if debug mode is enabled
func (m *Manager) logCommand(cmdArgs []string) {
	if m.config.IsDebug() {
		klog.V(1).Infof(" Executing command: %v", cmdArgs)
	}
}

// logCommandResult logs the command result if debug mode is enabled
func (m *Manager) logCommandResult(exitCode int, output []byte) {
	if m.config.IsDebug() {
		klog.V(1).Infof(" Exit code: %d", exitCode)
		if len(output) > 0 {
			klog.V(1).Infof(" output: %s", string(output))
		}
	}
}

// ListPools enumerates all pool names known to the system, preserving
// the order zpool reports them in
func (m *Manager) ListPools() ([]string, error) {
	cmdArgs := m.config.ZpoolListCmd
	m.logCommand(cmdArgs)
	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		m.logCommandResult(exitCodeOf(err), output)
		return nil, fmt.Errorf("zpool list command failed: %w, output: %s", err, string(output))
	}
	m.logCommandResult(0, output)

	var pools []string
	for _, line := range strings.Split(string(output), "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			pools = append(pools, name)
		}
	}

	return pools, nil
}

// Status returns the raw multi-line status text for one pool. The text
// is untrusted input for the parser.
func (m *Manager) Status(poolName string) (string, error) {
	var cmdArgs []string
	if m.config.Mode == "test" {
		cmdArgs = m.config.ZpoolStatusCmd
	} else {
		cmdArgs = append(m.config.ZpoolStatusCmd, poolName)
	}
	m.logCommand(cmdArgs)

	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		m.logCommandResult(exitCodeOf(err), output)
		return "", fmt.Errorf("zpool status command failed for pool %s: %w, output: %s", poolName, err, string(output))
	}
	m.logCommandResult(0, output)

	return string(output), nil
}

// StartScrub requests a new scrub for the given pool
func (m *Manager) StartScrub(poolName string) error {
	klog.Infof("Starting scrub for pool %s", poolName)

	var cmdArgs []string
	if m.config.Mode == "test" {
		cmdArgs = m.config.ZpoolScrubCmd
	} else {
		cmdArgs = append(m.config.ZpoolScrubCmd, poolName)
	}
	m.logCommand(cmdArgs)

	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		m.logCommandResult(exitCodeOf(err), output)
		return fmt.Errorf("zpool scrub command failed for pool %s: %w, output: %s", poolName, err, string(output))
	}
	m.logCommandResult(0, output)

	return nil
}

// ScrubCommand returns the argv that StartScrub would run, for dry-run
// announcements
func (m *Manager) ScrubCommand(poolName string) []string {
	if m.config.Mode == "test" {
		return m.config.ZpoolScrubCmd
	}
	return append(append([]string{}, m.config.ZpoolScrubCmd...), poolName)
}

func exitCodeOf(err error) int {
	if exitError, ok := err.(*exec.ExitError); ok {
		return exitError.ExitCode()
	}
	return 0
}
