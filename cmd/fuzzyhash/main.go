package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hoangsonww/fuzzyhash/config"
	"github.com/hoangsonww/fuzzyhash/internal/cache"
	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
	"github.com/hoangsonww/fuzzyhash/internal/input"
	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
	"github.com/hoangsonww/fuzzyhash/internal/shutdown"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks command-line mistakes so they exit with exitUsage.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func usagef(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	stats    bool

	cfg      *config.Config
	ctx      context.Context
	shutdown *shutdown.Manager
	cache    *cache.Cache

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()

	if a.shutdown != nil {
		if serr := a.shutdown.Shutdown(); serr != nil && err == nil {
			err = serr
		}
	}
	if a.stats {
		a.printStats()
	}

	if err != nil {
		fmt.Fprintf(stderr, "fuzzyhash: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue), fherrors.IsUsageError(err):
		return exitUsage
	case strings.HasPrefix(err.Error(), "unknown command"),
		strings.HasPrefix(err.Error(), "unknown flag"),
		strings.HasPrefix(err.Error(), "unknown shorthand flag"):
		return exitUsage
	default:
		return exitFailure
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fuzzyhash",
		Short:         "Compute and compare context-triggered piecewise fuzzy hashes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "fuzzyhash.yaml", "path to config (optional)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override monitoring.log_level")
	root.PersistentFlags().BoolVar(&a.stats, "stats", false, "print hashing metrics to stderr on exit")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		a.hashCommand(),
		a.tokensCommand(),
		a.fingerprintCommand(),
		a.compareCommand(),
		a.indexCommand(),
		a.dedupCommand(),
	)
	return root
}

func (a *app) setup(parent context.Context) error {
	cfg, err := config.LoadOrDefault(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Monitoring.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return usageError{err}
		}
	}
	a.cfg = cfg

	logger := monitoring.NewLogger(cfg.Monitoring.LogLevel, cfg.Monitoring.LogFormat)
	logger.SetOutput(a.stderr)
	monitoring.SetGlobalLogger(logger)

	if parent == nil {
		parent = context.Background()
	}
	a.shutdown = shutdown.NewManager(30 * time.Second)
	a.ctx = a.shutdown.Listen(parent)

	a.cache = cache.New(cfg.Batch.CacheEntries)
	a.shutdown.RegisterHook("close-cache", 20, time.Second, func(context.Context) error {
		return a.cache.Close()
	})

	monitoring.WithField("config", a.cfgFile).Debug("configuration loaded")
	return nil
}

func (a *app) reader(decompress string) *input.Reader {
	mode := a.cfg.Input.Decompression
	if decompress != "" {
		mode = decompress
	}
	return input.NewReader(mode, a.cfg.Input.MaxInputSize).WithStdin(a.stdin)
}

func (a *app) printStats() {
	out, err := json.MarshalIndent(monitoring.GetMetrics().Snapshot(), "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(a.stderr, string(out))
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s accepts %d arg(s), received %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return usagef("%s accepts between %d and %d arg(s), received %d", cmd.CommandPath(), min, max, len(args))
		}
		return nil
	}
}

// inputs defaults an empty file list to stdin. Stdin can be read only once,
// so naming it twice is a usage error.
func inputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{input.Stdin}, nil
	}
	seen := false
	for _, arg := range args {
		if arg != input.Stdin {
			continue
		}
		if seen {
			return nil, usagef("stdin (%s) may be given only once", input.Stdin)
		}
		seen = true
	}
	return args, nil
}
