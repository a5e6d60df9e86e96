// Package mirror validates the requested direction and hands the mirror over
// to rclone.
package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/chmdznr/rclone-mirror/internal/rclone"
	"github.com/chmdznr/rclone-mirror/pkg/models"
)

// Runner invokes the external sync tool
type Runner interface {
	LookPath() (string, error)
	Sync(ctx context.Context, src, dst string) (*rclone.Result, error)
}

// Recorder persists the history of sync runs
type Recorder interface {
	StartRun(run *models.Run) error
	FinishRun(run *models.Run) error
}

// Confirmer asks the user before a destructive mirror
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Syncer runs a single mirror between the local and remote roots
type Syncer struct {
	runner    Runner
	paths     models.Paths
	history   Recorder
	confirmer Confirmer
	out       io.Writer
	dryRun    bool
}

// SyncerConfig holds configuration for the syncer. History and Confirmer are
// optional.
type SyncerConfig struct {
	Paths     models.Paths
	History   Recorder
	Confirmer Confirmer
	Out       io.Writer
	DryRun    bool
}

// NewSyncer creates a new syncer instance
func NewSyncer(runner Runner, config SyncerConfig) *Syncer {
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	return &Syncer{
		runner:    runner,
		paths:     config.Paths,
		history:   config.History,
		confirmer: config.Confirmer,
		out:       out,
		dryRun:    config.DryRun,
	}
}

// ParseArgs validates the two positional arguments. Both must be present and
// non-empty, each must be "local" or "remote", and they must differ.
func ParseArgs(argv []string) (models.Direction, error) {
	if len(argv) < 2 || argv[0] == "" || argv[1] == "" {
		return models.Direction{}, &UsageError{Reason: ReasonMissingArgs, Args: argv}
	}
	if len(argv) > 2 {
		return models.Direction{}, &UsageError{Reason: ReasonInvalidArgs, Args: argv}
	}

	from, okFrom := models.ParseEndpoint(argv[0])
	to, okTo := models.ParseEndpoint(argv[1])
	if !okFrom || !okTo || from == to {
		return models.Direction{}, &UsageError{Reason: ReasonInvalidArgs, Args: argv}
	}
	return models.Direction{From: from, To: to}, nil
}

// ResolveDirection maps a direction onto the configured roots
func ResolveDirection(d models.Direction, paths models.Paths) (source, dest string) {
	return paths.Resolve(d.From), paths.Resolve(d.To)
}

// CheckDependency verifies that rclone can be found
func (s *Syncer) CheckDependency() error {
	path, err := s.runner.LookPath()
	if err != nil {
		program := "rclone"
		if p, ok := s.runner.(interface{ Program() string }); ok {
			program = p.Program()
		}
		log.WithError(err).WithField("program", program).Debug("rclone lookup failed")
		return &DependencyError{Program: program, Err: err}
	}
	log.WithField("path", path).Debug("Found rclone")
	return nil
}

// Run takes the command line arguments through validation, dependency check
// and direction resolution, then invokes rclone once. rclone is never started
// if any earlier step fails.
func (s *Syncer) Run(ctx context.Context, argv []string) error {
	direction, err := ParseArgs(argv)
	if err != nil {
		return err
	}

	if err := s.CheckDependency(); err != nil {
		return err
	}

	source, dest := ResolveDirection(direction, s.paths)

	if s.confirmer != nil {
		question := fmt.Sprintf("Mirror %s to %s? Files only present in %s will be deleted.", source, dest, dest)
		ok, err := s.confirmer.Confirm(question)
		if err != nil {
			return errors.Wrap(err, "confirm")
		}
		if !ok {
			return ErrAborted
		}
	}

	return s.RunSync(ctx, direction, source, dest)
}

// RunSync prints the status line and blocks until rclone has mirrored source
// to dest.
func (s *Syncer) RunSync(ctx context.Context, direction models.Direction, source, dest string) error {
	logger := log.WithFields(log.Fields{
		"direction":   direction.String(),
		"source":      source,
		"destination": dest,
	})

	status := color.New(color.FgCyan, color.Bold)
	status.Fprintf(s.out, "Syncing %s (%s) -> %s (%s)\n", direction.From, source, direction.To, dest)
	if s.dryRun {
		color.New(color.FgYellow).Fprintln(s.out, "Dry run: no changes will be made")
	}

	run := &models.Run{
		StartedAt:   time.Now(),
		Direction:   direction.String(),
		Source:      source,
		Destination: dest,
		DryRun:      s.dryRun,
		Status:      models.RunStatusRunning,
	}
	s.startRun(logger, run)

	result, err := s.runner.Sync(ctx, source, dest)

	run.FinishedAt = time.Now()
	if result != nil {
		run.ExitCode = result.ExitCode
	}
	if err != nil {
		run.Status = models.RunStatusFailed
		if result == nil || result.ExitCode == 0 {
			run.ExitCode = -1
		}
	} else {
		run.Status = models.RunStatusCompleted
	}
	s.finishRun(logger, run)

	if err != nil {
		logger.WithField("exit_code", run.ExitCode).Debug("rclone failed")
		return &SyncError{ExitCode: run.ExitCode, Err: err}
	}

	logger.WithField("duration", run.Duration().Round(time.Millisecond)).Debug("rclone finished")
	return nil
}

func (s *Syncer) startRun(logger *log.Entry, run *models.Run) {
	if s.history == nil {
		return
	}
	if err := s.history.StartRun(run); err != nil {
		logger.WithError(err).Warn("Failed to record sync run")
	}
}

func (s *Syncer) finishRun(logger *log.Entry, run *models.Run) {
	if s.history == nil || run.ID == 0 {
		return
	}
	if err := s.history.FinishRun(run); err != nil {
		logger.WithError(err).Warn("Failed to update sync run")
	}
}
