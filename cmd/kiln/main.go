package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/kiln/internal/api"
	"github.com/seantiz/kiln/internal/config"
	"github.com/seantiz/kiln/internal/dispatch"
	"github.com/seantiz/kiln/internal/job"
	"github.com/seantiz/kiln/internal/journal"
	"github.com/seantiz/kiln/internal/store"
)

// drainTimeout bounds how long shutdown waits for in-flight jobs to settle.
const drainTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:     "kiln",
	Short:   "kiln - in-memory execution tracking and dispatch",
	Version: "0.1.0",
	Long: `kiln tracks asynchronous job executions in memory and dispatches
registered job kinds over a small HTTP API.

Examples:
  kiln serve                          # Start the API server on :8080
  kiln serve --listen-addr :9090      # Custom listen address
  kiln serve --max-concurrent 4       # Bound concurrent job bodies
  kiln serve --journal-path kiln.db   # Journal transitions to SQLite`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiln API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen-addr", "", "listen address (overrides KILN_LISTEN_ADDR)")
	serveCmd.Flags().String("log-level", "", "log level: debug, info, warn, error (overrides KILN_LOG_LEVEL)")
	serveCmd.Flags().Int("max-concurrent", 0, "max concurrent job bodies, 0 = unlimited (overrides KILN_MAX_CONCURRENT)")
	serveCmd.Flags().Int("store-capacity", 0, "max retained executions, 0 = unbounded (overrides KILN_STORE_CAPACITY)")
	serveCmd.Flags().String("journal-path", "", "SQLite journal path, empty = disabled (overrides KILN_JOURNAL_PATH)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	applyFlags(cmd, &cfg)

	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("kiln: starting",
		"listen_addr", cfg.ListenAddr,
		"max_concurrent", cfg.MaxConcurrent,
		"store_capacity", cfg.StoreCapacity,
		"journal_path", cfg.JournalPath,
	)

	var storeOpts []store.Option
	if cfg.StoreCapacity > 0 {
		storeOpts = append(storeOpts, store.WithCapacity(cfg.StoreCapacity))
	}
	s := store.NewMemoryStore(storeOpts...)

	var j *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
	}

	reg := job.NewRegistry()
	job.RegisterBuiltins(reg)

	var dispatchOpts []dispatch.Option
	if cfg.MaxConcurrent > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithMaxConcurrent(cfg.MaxConcurrent))
	}
	if j != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithJournal(j))
	}
	d := dispatch.NewDispatcher(s, logger, dispatchOpts...)

	srv := api.NewServer(cfg.ListenAddr, s, reg, d, j, logger)

	if err := srv.Run(); err != nil {
		return err
	}

	// Give in-flight jobs a bounded window to settle before exit.
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		logger.Warn("jobs still in flight at shutdown", "error", err)
	}

	return nil
}

// applyFlags lets explicitly-set flags win over environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen-addr") {
		cfg.ListenAddr, _ = flags.GetString("listen-addr")
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		cfg.LogLevel = config.ParseLogLevel(v)
	}
	if flags.Changed("max-concurrent") {
		cfg.MaxConcurrent, _ = flags.GetInt("max-concurrent")
	}
	if flags.Changed("store-capacity") {
		cfg.StoreCapacity, _ = flags.GetInt("store-capacity")
	}
	if flags.Changed("journal-path") {
		cfg.JournalPath, _ = flags.GetString("journal-path")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
