package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/chmdznr/rclone-mirror/internal/config"
	"github.com/chmdznr/rclone-mirror/internal/db"
	"github.com/chmdznr/rclone-mirror/internal/mirror"
	"github.com/chmdznr/rclone-mirror/internal/prompt"
	"github.com/chmdznr/rclone-mirror/internal/rclone"
	"github.com/chmdznr/rclone-mirror/pkg/models"
	"github.com/chmdznr/rclone-mirror/pkg/version"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the app and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	err := app.Run(args)
	if err == nil {
		return 0
	}

	red := color.New(color.FgRed)
	var syncErr *mirror.SyncError
	if errors.As(err, &syncErr) {
		// rclone already reported the failure itself
		red.Fprintf(stderr, "Sync failed (exit code %d)\n", syncErr.ExitCode)
	} else {
		red.Fprintln(stderr, err)
	}
	return mirror.ExitCode(err)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	return &cli.App{
		Name:      "sync",
		Usage:     "Mirror the local and remote sync roots with rclone",
		UsageText: "sync [options] <source> <destination>\n\n   source and destination are \"local\" and \"remote\", in either order",
		Version:   version.Version,
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are computed by run
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the config file",
				Value:   config.DefaultConfigPath,
				EnvVars: []string{"RCLONE_MIRROR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "local",
				Usage:   "Override the local sync root",
				EnvVars: []string{"RCLONE_MIRROR_LOCAL"},
			},
			&cli.StringFlag{
				Name:    "remote",
				Usage:   "Override the remote sync root",
				EnvVars: []string{"RCLONE_MIRROR_REMOTE"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Pass --dry-run to rclone",
			},
			&cli.BoolFlag{
				Name:  "confirm",
				Usage: "Ask before mirroring",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record this run in the history database",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			log.SetOutput(c.App.ErrWriter)
			log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
			log.SetLevel(log.InfoLevel)
			if c.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		Action: startSync,
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "Version:    %s\n", version.Version)
					fmt.Fprintf(c.App.Writer, "Git commit: %s\n", version.GitCommit)
					fmt.Fprintf(c.App.Writer, "Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:   "check",
				Usage:  "Check rclone, the exclusion file and the remote bucket",
				Action: checkSetup,
			},
			{
				Name:  "history",
				Usage: "Show recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "keep",
						Usage: "Delete all but the newest N runs (0 keeps everything)",
					},
				},
				Action: showHistory,
			},
		},
	}
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, errors.Wrap(err, "failed to load config")
	}

	if c.IsSet("local") {
		cfg.Local = c.String("local")
	}
	if c.IsSet("remote") {
		cfg.Remote = c.String("remote")
	}
	if err := cfg.Expand(); err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func newClient(c *cli.Context, cfg config.Config) *rclone.Client {
	flags := rclone.DefaultFlags()
	flags.Transfers = cfg.Transfers
	flags.Checkers = cfg.Checkers
	flags.ExcludeFrom = cfg.ExcludeFrom
	flags.DryRun = c.Bool("dry-run")

	return rclone.New(cfg.Rclone, flags, rclone.WithOutput(c.App.Writer, c.App.ErrWriter))
}

// startSync mirrors in the direction given by the two positional arguments
func startSync(c *cli.Context) error {
	args := c.Args().Slice()
	if _, err := mirror.ParseArgs(args); err != nil {
		cli.ShowAppHelp(c)
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	syncerConfig := mirror.SyncerConfig{
		Paths: models.Paths{
			Local:  cfg.Local,
			Remote: cfg.Remote,
		},
		Out:    c.App.Writer,
		DryRun: c.Bool("dry-run"),
	}

	if !c.Bool("no-history") {
		history, err := db.New(cfg.History)
		if err != nil {
			log.WithError(err).Warn("Run history is unavailable")
		} else {
			defer history.Close()
			syncerConfig.History = history
		}
	}

	if c.Bool("confirm") {
		syncerConfig.Confirmer = prompt.NewKeyboard(c.App.Writer)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := mirror.NewSyncer(newClient(c, cfg), syncerConfig)
	return syncer.Run(ctx, args)
}
