package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/afl-stats/internal/config"
	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/pipeline"
	"github.com/pfrederiksen/afl-stats/internal/source"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitPartial = 3
)

// Version is set at build time.
var Version = "dev"

var (
	flagConfig  string
	flagDataDir string
	flagFormat  string
	flagVerbose bool
)

// errPartial is returned after a run whose summary was written but some of
// whose partitions failed to persist.
var errPartial = errors.New("some partitions failed to persist")

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "afl-stats",
		Short: "Extract and reconcile AFL match, player and lineup tables",
		Long: `A CLI tool that extracts AFL match results, lineups, player profiles and
player statistics from afltables.com and merges them incrementally into a
local record store. Re-running a command only rewrites what changed.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Config file (default ~/.config/afl-stats/config.toml)")
	flags.StringVar(&flagDataDir, "data-dir", "", "Data directory, overrides storage.data_dir")
	flags.StringVar(&flagFormat, "format", "text", "Output format: text or json")
	flags.BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newMatchesCmd(),
		newGamesCmd(),
		newPlayersCmd(),
		newAllPlayersCmd(),
		newTeamsCmd(),
		newListCmd(),
		newStatsCmd(),
		newRankCmd(),
		newConfigCmd(),
	)
	return cmd
}

// app holds what every store-backed command needs.
type app struct {
	cfg    *config.Config
	store  storage.Store
	format OutputFormat
}

// setup loads config, configures logging and opens the store.
func setup(ctx context.Context) (*app, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, path, exists, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDataDir != "" {
		if cfg.Storage.DataDir, err = config.ExpandPath(flagDataDir); err != nil {
			return nil, err
		}
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.NewWithFormat(level, logger.Format(cfg.Logging.Format), os.Stderr))
	logger.Debug("Configuration loaded", logger.Fields{
		"path":     path,
		"exists":   exists,
		"backend":  cfg.Storage.Backend,
		"data_dir": cfg.Storage.DataDir,
	})

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return &app{cfg: cfg, store: store, format: format}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close store", logger.Fields{"error": err.Error()})
	}
}

// runner builds the pipeline over an HTTP source, cached on disk when a
// cache directory is configured.
func (a *app) runner() (*pipeline.Runner, error) {
	var src source.Source = source.NewHTTP(a.cfg.Source.UserAgent, a.cfg.Timeout(), a.cfg.Source.MaxRetries)
	if a.cfg.Source.CacheDir != "" {
		cache, err := source.NewCache(src, a.cfg.Source.CacheDir)
		if err != nil {
			return nil, err
		}
		src = cache
	}
	journal, err := storage.NewJournal(a.cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing run log: %w", err)
	}
	return pipeline.New(src, a.store, pipeline.Options{
		MaxConcurrent: a.cfg.Source.MaxConcurrent,
		RecencyGuard:  a.cfg.Merge.RecencyGuard,
		BaseURL:       a.cfg.Source.BaseURL,
		Journal:       journal,
	}), nil
}

// extract runs the jobs built by plan and writes the summary.
func extract(cmd *cobra.Command, plan func(*pipeline.Runner) ([]pipeline.Job, error)) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.runner()
	if err != nil {
		return err
	}
	jobs, err := plan(r)
	if err != nil {
		return err
	}

	summary, runErr := r.Run(cmd.Context(), jobs)
	if flagVerbose {
		logMetrics()
	}
	if summary != nil {
		if err := WriteSummary(cmd.OutOrStdout(), summary, a.format, flagVerbose); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if summary.Partial() {
		return errPartial
	}
	return nil
}

func logMetrics() {
	snap := logger.GetMetricsSnapshot()
	fields := logger.Fields{}
	for name, n := range snap.Counters {
		fields[name] = n
	}
	for name, v := range snap.Gauges {
		fields[name] = v
	}
	if t, ok := snap.Timings["source.fetch"]; ok {
		fields["fetch.count"] = t.Count
		fields["fetch.avg"] = t.Average.String()
		fields["fetch.max"] = t.Max.String()
	}
	logger.Debug("Source metrics", fields)
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, errPartial):
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		os.Exit(ExitPartial)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
