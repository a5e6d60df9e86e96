package mirror

import (
	"fmt"

	"github.com/pkg/errors"
)

// UsageReason tells apart the kinds of bad invocation
type UsageReason int

const (
	// ReasonMissingArgs means fewer than two non-empty arguments were given.
	ReasonMissingArgs UsageReason = iota
	// ReasonInvalidArgs means two arguments were given but they are not a
	// valid direction.
	ReasonInvalidArgs
)

// UsageError is returned for bad command line arguments
type UsageError struct {
	Reason UsageReason
	Args   []string
}

func (e *UsageError) Error() string {
	if e.Reason == ReasonMissingArgs {
		return "missing arguments: expected <source> <destination>"
	}
	return fmt.Sprintf("invalid arguments %q: expected \"local remote\" or \"remote local\"", e.Args)
}

// DependencyError is returned when the rclone executable cannot be resolved.
// The message is the same whatever executable was configured; Program holds
// the configured name or path.
type DependencyError struct {
	Program string
	Err     error
}

func (e *DependencyError) Error() string {
	return "rclone could not be found"
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// SyncError is returned when rclone exits non-zero
type SyncError struct {
	ExitCode int
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed with exit code %d: %v", e.ExitCode, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ErrAborted is returned when the user declines the confirmation prompt
var ErrAborted = errors.New("sync aborted")

// ExitCode maps an error returned by Run to the process exit code. rclone's
// own exit code is propagated as-is; every other failure exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) && syncErr.ExitCode > 0 {
		return syncErr.ExitCode
	}
	return 1
}
