// Package rclone runs the external rclone executable.
//
// The wrapper never captures rclone's sync output: stdin, stdout and stderr are
// inherited so progress and errors reach the terminal unchanged.
package rclone

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultWaitDelay bounds how long an interrupted rclone may keep running
// before it is killed.
const DefaultWaitDelay = 30 * time.Second

// lookPath is overridden in tests
var lookPath = exec.LookPath

// Result holds the outcome of a single rclone invocation
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Flags is the fixed flag set passed to rclone sync
type Flags struct {
	Transfers   int
	Checkers    int
	Progress    bool
	Verbose     bool
	ExcludeFrom string
	DryRun      bool
}

// DefaultFlags returns the flag set used for every mirror
func DefaultFlags() Flags {
	return Flags{
		Transfers: 10,
		Checkers:  5,
		Progress:  true,
		Verbose:   true,
	}
}

// Args builds the rclone command line for mirroring src to dst
func (f Flags) Args(src, dst string) []string {
	args := []string{"sync", src, dst}
	if f.Progress {
		args = append(args, "--progress")
	}
	if f.Verbose {
		args = append(args, "--verbose")
	}
	args = append(args,
		fmt.Sprintf("--transfers=%d", f.Transfers),
		fmt.Sprintf("--checkers=%d", f.Checkers),
	)
	if f.ExcludeFrom != "" {
		args = append(args, "--exclude-from="+f.ExcludeFrom)
	}
	if f.DryRun {
		args = append(args, "--dry-run")
	}
	return args
}

// Options configures how rclone is executed
type Options struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Env       map[string]string
	WaitDelay time.Duration
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns options that inherit the wrapper's standard streams
func DefaultOptions() *Options {
	return &Options{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Env:       make(map[string]string),
		WaitDelay: DefaultWaitDelay,
	}
}

// WithOutput redirects rclone's stdout and stderr
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Options) {
		o.Stdout = stdout
		o.Stderr = stderr
	}
}

// WithEnvVar adds a single environment variable
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithWaitDelay sets how long to wait after an interrupt before killing rclone
func WithWaitDelay(d time.Duration) Option {
	return func(o *Options) {
		o.WaitDelay = d
	}
}

// Client invokes a specific rclone executable
type Client struct {
	program string
	flags   Flags
	options *Options
}

// New creates a client for program, which is either a name resolved on PATH or
// a path to the executable.
func New(program string, flags Flags, opts ...Option) *Client {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Client{
		program: program,
		flags:   flags,
		options: options,
	}
}

// Program returns the configured executable
func (c *Client) Program() string {
	return c.program
}

// LookPath resolves the executable on PATH
func (c *Client) LookPath() (string, error) {
	return lookPath(c.program)
}

// Sync mirrors src to dst, blocking until rclone exits. A non-zero exit is
// reported through Result.ExitCode together with an *exec.ExitError.
func (c *Client) Sync(ctx context.Context, src, dst string) (*Result, error) {
	args := c.flags.Args(src, dst)
	log.WithFields(log.Fields{
		"program": c.program,
		"args":    strings.Join(args, " "),
	}).Debug("Running rclone")

	cmd := c.command(ctx, args...)
	cmd.Stdin = c.options.Stdin
	cmd.Stdout = c.options.Stdout
	cmd.Stderr = c.options.Stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		ExitCode: exitCode(err),
		Duration: time.Since(start),
	}
	if err != nil {
		return result, errors.Wrap(err, "rclone sync")
	}
	return result, nil
}

// Version returns the first line of `rclone version`
func (c *Client) Version(ctx context.Context) (string, error) {
	var stdout bytes.Buffer
	cmd := c.command(ctx, "version")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "rclone version")
	}

	line, err := bufio.NewReader(&stdout).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read rclone version")
	}
	return strings.TrimSpace(line), nil
}

// command prepares an exec.Cmd that is interrupted, rather than killed, when
// ctx is cancelled.
func (c *Client) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.program, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = c.options.WaitDelay

	if len(c.options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return cmd
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		return -1
	}
}
