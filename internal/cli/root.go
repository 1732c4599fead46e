// Package cli implements the qtermpi command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"qtermpi/internal/config"
	"qtermpi/internal/estimator"
	"qtermpi/internal/quantum"
	"qtermpi/internal/sampler"
	"qtermpi/internal/telemetry"
	"qtermpi/internal/version"
)

// RootOptions holds flags that are read before the config is loaded.
type RootOptions struct {
	ConfigFile  string
	Verbose     int
	VeryVerbose bool
}

// NewRootCommand creates the qtermpi command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "qtermpi [flags] N",
		Short: "Estimate pi with simulated quantum phase estimation",
		Long: "qtermpi estimates pi by simulating quantum phase estimation on a local\n" +
			"state-vector simulator, sweeping the number of counting qubits from\n" +
			"--min-qubits up to N (or over --qubits) and printing one estimate per count.",
		Version:       version.Resolve(),
		Args:          maxOneInt,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweepCommand(cmd, opts, args)
		},
	}
	cmd.SetVersionTemplate("qtermpi {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flag", err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (yaml); defaults to ./qtermpi.yaml when present")
	pf.CountVarP(&opts.Verbose, "verbose", "v", "log at info level; -vv logs at debug level")
	pf.BoolVar(&opts.VeryVerbose, "very-verbose", false, "log at debug level")
	pf.String("format", "text", "output format ("+strings.Join(ValidFormats, "|")+")")
	pf.String("telemetry", telemetry.ExporterNone, "telemetry exporter (none|stdout|otlp|prometheus)")
	pf.String("otlp-endpoint", "localhost:4317", "OTLP gRPC endpoint for --telemetry otlp")
	pf.String("metrics-addr", "localhost:9464", "listen address for /metrics with --telemetry prometheus")

	f := cmd.Flags()
	f.IntSlice("qubits", nil, "explicit counting-qubit counts, e.g. 3,5,7 (overrides N)")
	f.Int("min-qubits", config.DefaultMinQubits, "smallest counting-qubit count in the sweep; lowered to N when N is smaller and this is unset")
	f.Int("shots", sampler.DefaultShots, "measurement shots per circuit")
	f.Uint64("seed", 0, "base random seed (random when unset)")
	f.Int("workers", 1, "concurrent circuits; 0 uses every CPU")
	f.Bool("exact", false, "use exact probabilities instead of random shots")
	f.Bool("monitor", false, "show a live progress monitor on stderr")

	cmd.AddCommand(NewQASMCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func maxOneInt(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("accepts at most 1 arg, received %d", len(args)))
	}
	for _, a := range args {
		if _, err := strconv.Atoi(a); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid qubit count %q", a), err)
		}
	}
	return nil
}

// newLogger returns the stderr logger for a verbosity of 0 (warn), 1 (info)
// or 2 (debug).
func newLogger(w io.Writer, level int) *log.Logger {
	lvl := log.WarnLevel
	switch {
	case level >= 2:
		lvl = log.DebugLevel
	case level == 1:
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Prefix:          "qtermpi",
		Level:           lvl,
	})
}

func runSweepCommand(cmd *cobra.Command, opts *RootOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if len(args) == 1 {
		n, _ := strconv.Atoi(args[0])
		v.Set("max_qubits", n)
	}
	cfg, err := config.Load(v, opts.ConfigFile)
	if err != nil {
		return configError(err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel())
	runID := uuid.NewString()
	logger.Debug("starting sweep", "run", runID, "qubits", cfg.QubitCounts(), "shots", cfg.Shots)

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version.Resolve()
	tcfg.Exporter = cfg.Telemetry.Exporter
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tcfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	tcfg.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "telemetry", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	if cfg.Telemetry.Exporter == telemetry.ExporterPrometheus {
		addr, _, err := telemetry.ServeMetrics(serveCtx, cfg.Telemetry.MetricsAddr)
		if err != nil {
			return WrapExitError(ExitFailure, "metrics endpoint", err)
		}
		logger.Info("serving metrics", "addr", "http://"+addr+"/metrics")
	}

	engineOpts := []estimator.Option{estimator.WithLogger(logger), estimator.WithWorkers(cfg.Workers)}
	if cfg.HasSeed {
		engineOpts = append(engineOpts, estimator.WithSeed(cfg.Seed))
	}
	samplerName := "shots"
	if cfg.Exact {
		samplerName = "exact"
		engineOpts = append(engineOpts, estimator.WithExactSampler())
	}

	var seed uint64
	sweep := func(ctx context.Context, observer estimator.Observer) ([]estimator.Estimate, error) {
		eng := estimator.New(append(engineOpts, estimator.WithObserver(observer))...)
		seed = eng.Seed()
		return runSweep(ctx, eng, cfg.QubitCounts(), cfg.Shots, cfg.Workers)
	}

	var estimates []estimator.Estimate
	if cfg.Monitor {
		estimates, err = runMonitor(ctx, cmd.ErrOrStderr(), runID, len(cfg.QubitCounts()), cfg.Shots, sweep)
	} else {
		estimates, err = sweep(ctx, nil)
	}
	if err != nil {
		if errors.Is(err, quantum.ErrInvalidConfiguration) {
			return configError(err)
		}
		return WrapExitError(ExitFailure, "sweep failed", err)
	}

	report := &Report{
		RunID:     runID,
		Version:   version.Resolve(),
		Sampler:   samplerName,
		Shots:     cfg.Shots,
		Seed:      seed,
		Estimates: estimates,
	}
	if err := writeReport(cmd.OutOrStdout(), cfg.Format, report); err != nil {
		return WrapExitError(ExitFailure, "write output", err)
	}
	logger.Info("sweep finished", "run", runID, "circuits", len(estimates), "shots", formatCount(cfg.Shots), "seed", seed)
	return nil
}

// configError maps a configuration failure to the command-error exit code.
// Errors wrapping quantum.ErrInvalidConfiguration already say so.
func configError(err error) error {
	if errors.Is(err, quantum.ErrInvalidConfiguration) {
		return &ExitError{Code: ExitCommandError, Err: err}
	}
	return WrapExitError(ExitCommandError, "invalid configuration", err)
}

// runSweep collects a sweep, sequentially for one worker and through
// SweepParallel otherwise. Degenerate estimates are kept.
func runSweep(ctx context.Context, eng *estimator.Engine, qubits []int, shots, workers int) ([]estimator.Estimate, error) {
	if workers != 1 {
		return eng.SweepParallel(ctx, qubits, shots)
	}
	estimates := make([]estimator.Estimate, 0, len(qubits))
	for est, err := range eng.Sweep(ctx, qubits, shots) {
		if err != nil && !errors.Is(err, estimator.ErrDegenerateEstimate) {
			return estimates, err
		}
		estimates = append(estimates, est)
	}
	return estimates, nil
}

// Execute runs the root command with ctx and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return GetExitCode(err)
}
