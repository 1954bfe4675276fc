// Package main provides the promoscan command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/promoscan/internal/config"
	"github.com/inodb/promoscan/internal/engine"
	"github.com/inodb/promoscan/internal/metrics"
)

// Exit codes
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitMismatch = 3
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errMismatch marks a run that diverged from its baseline.
var errMismatch = errors.New("result does not match baseline")

// usageError marks an error caused by how the command was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(viper.New(), stdout, stderr)
	root := a.rootCmd()
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)

	var (
		usage   usageError
		invalid *config.ValidationError
	)
	switch {
	case errors.Is(err, errMismatch):
		return ExitMismatch
	case errors.As(err, &usage), errors.As(err, &invalid):
		return ExitUsage
	default:
		return ExitError
	}
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	cfgFile string

	logger   *zap.Logger
	recorder *metrics.Recorder
	server   *http.Server
}

func newApp(v *viper.Viper, stdout, stderr io.Writer) *app {
	return &app{v: v, stdout: stdout, stderr: stderr, logger: zap.NewNop()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "promoscan",
		Short: "Find sigma-70 promoters upstream of homologous genes",
		Long: `promoscan scans a directory of GenBank records for genes homologous to a
reference list, predicts a sigma-70 promoter upstream of each hit and builds a
per-reference consensus model. Several parallel strategies compute the same
result and can be checked against each other.`,
		Example: `  promoscan scan --references refs.txt --records data/
  promoscan scan --strategy pool --stage merge --verify
  promoscan compare --workers 8
  promoscan baseline list`,
		Version:           fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return usageError{errors.New("a command is required")}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default ~/"+config.FileName+")")
	pf.String("references", "", "Reference gene list")
	pf.String("records", "", "GenBank record file or directory")
	pf.Int("workers", 0, "Worker count (default: number of CPUs)")
	pf.Int("chunk", 0, "Pipeline chunk size (default: derived from task count)")
	pf.Float64("homology-threshold", 60, "Minimum alignment score for homology")
	pf.Float64("promoter-threshold", 0.7, "Minimum promoter score")
	pf.String("baseline-file", "", "Canonical JSON baseline file")
	pf.String("baseline-db", "", "DuckDB run history database")
	pf.String("cache-dir", "", "Directory for the parsed record cache")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	a.bind(pf, map[string]string{
		config.KeyReferences:        "references",
		config.KeyRecords:           "records",
		config.KeyWorkers:           "workers",
		config.KeyChunk:             "chunk",
		config.KeyHomologyThreshold: "homology-threshold",
		config.KeyPromoterThreshold: "promoter-threshold",
		config.KeyBaselineFile:      "baseline-file",
		config.KeyBaselineDB:        "baseline-db",
		config.KeyCacheDir:          "cache-dir",
		config.KeyLogLevel:          "log-level",
		config.KeyMetricsAddr:       "metrics-addr",
	})

	root.AddCommand(a.scanCmd())
	root.AddCommand(a.compareCmd())
	root.AddCommand(a.baselineCmd())
	root.AddCommand(a.configCmd())
	return root
}

// setup reads the configuration and builds the logger and metrics endpoint.
func (a *app) setup(*cobra.Command, []string) error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	level, err := zap.ParseAtomicLevel(a.v.GetString(config.KeyLogLevel))
	if err != nil {
		return config.Invalid(config.KeyLogLevel, "%v", err)
	}
	a.logger = newLogger(a.stderr, level)

	if addr := a.v.GetString(config.KeyMetricsAddr); addr != "" {
		if err := a.serveMetrics(addr); err != nil {
			return err
		}
	}
	return nil
}

// close stops the metrics endpoint and flushes the logger.
func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func newLogger(w io.Writer, level zap.AtomicLevel) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

func (a *app) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.recorder = metrics.NewRecorder(reg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// bind binds each configuration key to the named flag.
func (a *app) bind(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// load resolves the configuration for a command.
func (a *app) load() (config.Config, error) {
	return config.Load(a.v)
}

// newEngine builds an engine with the configured thresholds.
func (a *app) newEngine(cfg config.Config) *engine.Engine {
	eng := engine.New(engine.DefaultEnv(cfg.HomologyThreshold, cfg.PromoterThreshold))
	eng.SetLogger(a.logger)
	eng.SetMetrics(a.recorder)
	return eng
}
