package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/zapr"
	"github.com/runningman84/zpool-scrub-checker/pkg/checker"
	"github.com/runningman84/zpool-scrub-checker/pkg/config"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"k8s.io/klog/v2"
)

// Version can be set at build time using -ldflags
// Example: go build -ldflags="-X main.Version=1.0.0"
var Version = "dev"

var (
	days      int
	warnDays  int
	dryRun    bool
	verbose   bool
	mode      string
	logLevel  string
	logFormat string
)

var appFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "days, d",
		Usage:       "consider a pool due for a scrub when the last one is older than this many days",
		EnvVar:      "SCRUB_NEEDED_DAYS",
		Destination: &days,
		Value:       7,
	},
	cli.IntFlag{
		Name:        "warn-days, w",
		Usage:       "raise the exit code when the last scrub is older than this many days",
		EnvVar:      "SCRUB_WARN_DAYS",
		Destination: &warnDays,
		Value:       14,
	},
	cli.BoolFlag{
		Name:        "dry-run, n",
		Usage:       "only announce the scrub command, never run it",
		Destination: &dryRun,
	},
	cli.BoolFlag{
		Name:        "verbose",
		Usage:       "show the raw scan line consulted for each pool",
		Destination: &verbose,
	},
	cli.StringFlag{
		Name:        "mode",
		Usage:       "operation mode: test, direct, or chroot",
		Destination: &mode,
		Value:       "direct",
	},
	cli.StringFlag{
		Name:        "log-level",
		Usage:       "log level: info or debug",
		Destination: &logLevel,
		Value:       "info",
	},
	cli.StringFlag{
		Name:        "log-format",
		Usage:       "log format: text or json",
		Destination: &logFormat,
		Value:       "text",
	},
}

func main() {
	klog.InitFlags(nil)

	app := cli.NewApp()
	app.Name = "scrubcheck"
	app.Usage = "check zfs pools for overdue scrubs and start at most one per run"
	app.ArgsUsage = "[pool ...]"
	app.Version = Version
	app.Flags = appFlags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "scrubcheck: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if mode != "test" && mode != "direct" && mode != "chroot" {
		return fmt.Errorf("invalid mode: %s, must be one of: test, direct, chroot", mode)
	}
	if logLevel != "info" && logLevel != "debug" {
		return fmt.Errorf("invalid log level: %s, must be one of: info, debug", logLevel)
	}
	if logFormat != "text" && logFormat != "json" {
		return fmt.Errorf("invalid log format: %s, must be one of: text, json", logFormat)
	}
	if logFormat == "json" {
		var zapLog *zap.Logger
		var err error
		if logLevel == "debug" {
			zapLog, err = zap.NewDevelopment()
		} else {
			zapLog, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to initialize JSON logger: %w", err)
		}
		defer zapLog.Sync()

		klog.SetLogger(zapr.NewLogger(zapLog))
	}

	klog.Infof("Starting scrubcheck version %s in %s mode", Version, mode)

	cfg := config.NewConfig(mode)
	cfg.LogLevel = logLevel
	cfg.DryRun = dryRun
	cfg.Verbose = verbose
	cfg.NeededDays = days
	cfg.WarnDays = warnDays

	if logLevel == "debug" {
		flag.Set("v", "1")
	}

	chk := checker.NewChecker(cfg)
	decision, err := chk.Run(ctx.Args(), time.Now())
	klog.Flush()
	if err != nil {
		return err
	}
	if decision.ExitCode != 0 {
		return cli.NewExitError("", decision.ExitCode)
	}

	return nil
}
