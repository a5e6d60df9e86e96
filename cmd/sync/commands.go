package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/chmdznr/rclone-mirror/internal/config"
	"github.com/chmdznr/rclone-mirror/internal/db"
	"github.com/chmdznr/rclone-mirror/internal/mirror"
	"github.com/chmdznr/rclone-mirror/internal/remote"
	"github.com/chmdznr/rclone-mirror/pkg/utils"
)

const probeTimeout = 15 * time.Second

var errCheckFailed = errors.New("one or more checks failed")

// checkSetup verifies everything a mirror depends on without running one.
//
// A missing rclone is reported with the same DependencyError the sync action
// returns. The exclusion file and the bucket probe are reported individually
// and fail the command as a whole.
func checkSetup(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	out := c.App.Writer
	ok := color.New(color.FgGreen).Sprint("ok")
	fail := color.New(color.FgRed).Sprint("FAIL")
	skip := color.New(color.FgYellow).Sprint("skip")

	client := newClient(c, cfg)
	path, err := client.LookPath()
	if err != nil {
		fmt.Fprintf(out, "[%s] rclone: %s not found\n", fail, cfg.Rclone)
		return &mirror.DependencyError{Program: cfg.Rclone, Err: err}
	}

	failed := false
	if v, err := client.Version(c.Context); err != nil {
		fmt.Fprintf(out, "[%s] rclone: %s (%v)\n", fail, path, err)
		failed = true
	} else {
		fmt.Fprintf(out, "[%s] rclone: %s (%s)\n", ok, path, v)
	}

	fmt.Fprintf(out, "[%s] local: %s\n", ok, cfg.Local)
	fmt.Fprintf(out, "[%s] remote: %s\n", ok, cfg.Remote)

	exists, err := config.FileExists(cfg.ExcludeFrom)
	switch {
	case err != nil:
		fmt.Fprintf(out, "[%s] exclusion file: %v\n", fail, err)
		failed = true
	case !exists:
		fmt.Fprintf(out, "[%s] exclusion file: %s does not exist\n", fail, cfg.ExcludeFrom)
		failed = true
	default:
		fmt.Fprintf(out, "[%s] exclusion file: %s\n", ok, cfg.ExcludeFrom)
	}

	if !cfg.Probe.Enabled() {
		fmt.Fprintf(out, "[%s] bucket probe: not configured\n", skip)
	} else if err := probeBucket(c.Context, cfg.Probe); err != nil {
		fmt.Fprintf(out, "[%s] bucket probe: %v\n", fail, err)
		failed = true
	} else {
		fmt.Fprintf(out, "[%s] bucket probe: %s/%s\n", ok, cfg.Probe.Endpoint, cfg.Probe.Bucket)
	}

	if failed {
		return errCheckFailed
	}
	return nil
}

func probeBucket(ctx context.Context, probe config.Probe) error {
	prober, err := remote.NewProber(probe)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return prober.Check(ctx)
}

// showHistory prints the most recent sync runs and overall totals
func showHistory(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	history, err := db.New(cfg.History)
	if err != nil {
		return errors.Wrap(err, "failed to open history")
	}
	defer history.Close()

	if keep := c.Int("keep"); keep > 0 {
		removed, err := history.Prune(keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Pruned %d runs\n", removed)
	}

	runs, err := history.ListRuns(c.Int("limit"))
	if err != nil {
		return errors.Wrap(err, "failed to list runs")
	}
	stats, err := history.GetStats()
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(out, "No sync runs recorded")
		return nil
	}

	for _, run := range runs {
		status := utils.ExitStatus(run.ExitCode)
		if run.FinishedAt.IsZero() {
			status = "running"
		}
		dryRun := ""
		if run.DryRun {
			dryRun = " (dry run)"
		}
		fmt.Fprintf(out, "#%d %s  %s%s  %s  %s\n",
			run.ID,
			humanize.Time(run.StartedAt),
			run.Direction,
			dryRun,
			utils.FormatDuration(run.Duration()),
			status,
		)
	}

	fmt.Fprintf(out, "\nTotal runs: %d (completed: %d, failed: %d, running: %d)\n",
		stats.TotalRuns, stats.CompletedRuns, stats.FailedRuns, stats.RunningRuns)
	if !stats.LastSuccess.IsZero() {
		fmt.Fprintf(out, "Last success: %s\n", humanize.Time(stats.LastSuccess))
	}
	return nil
}
