package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Mode     string // test, direct, or chroot
	LogLevel string

	DryRun  bool
	Verbose bool

	// Scrub thresholds
	NeededDays int // scrub older than this is due for a new one
	WarnDays   int // scrub older than this raises the exit code

	// Pool filtering when pools are enumerated (empty = all pools)
	PoolWhitelist []string

	// Commands
	ZpoolListCmd   []string
	ZpoolStatusCmd []string
	ZpoolScrubCmd  []string
}

// NewConfig creates a new configuration for the given mode with
// defaults that can be overridden via environment variables
func NewConfig(mode string) *Config {
	cfg := &Config{
		Mode:          mode,
		LogLevel:      "info",
		NeededDays:    getEnvAsInt("SCRUB_NEEDED_DAYS", 7),
		WarnDays:      getEnvAsInt("SCRUB_WARN_DAYS", 14),
		PoolWhitelist: getEnvAsStringSlice("POOL_WHITELIST", []string{}),
	}

	switch mode {
	case "test":
		cfg.ZpoolListCmd = []string{"cat", "test/zpool_list.txt"}
		cfg.ZpoolStatusCmd = []string{"cat", "test/zpool_status.txt"}
		cfg.ZpoolScrubCmd = []string{"true"}
	case "chroot":
		zpoolBin := []string{"chroot", "/host", "/usr/local/sbin/zpool"}
		cfg.ZpoolListCmd = append(zpoolBin, "list", "-H", "-o", "name")
		cfg.ZpoolStatusCmd = append(zpoolBin, "status")
		cfg.ZpoolScrubCmd = append(zpoolBin, "scrub")
	default:
		cfg.ZpoolListCmd = []string{"zpool", "list", "-H", "-o", "name"}
		cfg.ZpoolStatusCmd = []string{"zpool", "status"}
		cfg.ZpoolScrubCmd = []string{"zpool", "scrub"}
	}

	return cfg
}

// NeededThreshold returns the needed-days setting as a duration
func (c *Config) NeededThreshold() time.Duration {
	return time.Duration(c.NeededDays) * 24 * time.Hour
}

// WarnThreshold returns the warn-days setting as a duration
func (c *Config) WarnThreshold() time.Duration {
	return time.Duration(c.WarnDays) * 24 * time.Hour
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsPoolAllowed checks if a pool is in the whitelist (or if whitelist is empty, all pools are allowed)
func (c *Config) IsPoolAllowed(poolName string) bool {
	if len(c.PoolWhitelist) == 0 {
		return true
	}

	for _, allowedPool := range c.PoolWhitelist {
		if allowedPool == poolName {
			return true
		}
	}

	return false
}

// getEnvAsInt reads an environment variable and returns it as an integer,
// or returns the default value if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsStringSlice reads an environment variable as a comma-separated list,
// or returns the default value if not set
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
