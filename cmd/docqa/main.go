package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/history"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/qa"
)

// app holds what every subcommand shares: flags, config and logger.
type app struct {
	envFile     string
	historyPath string
	verbose     bool

	cfg config.Config
	log *slog.Logger
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions of large documents, one chunk at a time",
		Long: "docqa splits a document into overlapping chunks, asks a language model the same question about each chunk, " +
			"and combines the answers in document order. It can compare raw PDF text against a Markdown conversion.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Name() == "serve")
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "config.env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().StringVar(&a.historyPath, "history", "", "SQLite database recording each run (default $HISTORY_DB, empty disables)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(createAskCommand(a))
	rootCmd.AddCommand(createCompareCommand(a))
	rootCmd.AddCommand(createTokensCommand(a))
	rootCmd.AddCommand(createServeCommand(a))
	rootCmd.AddCommand(createHistoryCommand(a))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads the env file and configuration and builds the logger. The
// server logs JSON to stdout; everything else logs text to stderr.
func (a *app) load(server bool) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	a.cfg = config.Load()
	if a.historyPath == "" {
		a.historyPath = a.cfg.HistoryDB
	}

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if server {
		a.log = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	} else {
		if !a.verbose {
			opts.Level = slog.LevelWarn
		}
		a.log = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return nil
}

// chunking returns the configured chunking parameters.
func (a *app) chunking() chunker.Config {
	return chunker.Config{
		MaxSize:        a.cfg.ChunkSize,
		Overlap:        a.cfg.ChunkOverlap,
		BoundarySearch: a.cfg.ChunkBoundarySearch,
	}
}

// engine builds the model provider and a query engine around it.
func (a *app) engine(ctx context.Context, chunking chunker.Config) (*qa.Engine, *llm.Observed, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	provider, err := llm.New(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	observed := llm.WithStats(provider, llm.NewLLMStats(time.Hour))

	opts := qa.Options{
		Chunking:       chunking,
		Model:          provider.Model(),
		Temperature:    a.cfg.LLMTemperature,
		MaxTokens:      a.cfg.LLMMaxTokens,
		MaxConcurrency: a.cfg.MaxConcurrentChunks,
		MaxAttempts:    a.cfg.ChunkMaxAttempts,
	}
	return qa.NewEngine(observed, opts, a.log), observed, nil
}

// openHistory returns nil when history is disabled.
func (a *app) openHistory() (*history.DB, error) {
	if a.historyPath == "" {
		return nil, nil
	}
	return history.Open(a.historyPath)
}

func (a *app) record(ctx context.Context, db *history.DB, agg *qa.AggregateAnswer, format string) {
	if db == nil {
		return
	}
	run := history.FromAnswer(agg, format, time.Now())
	if err := db.Record(ctx, &run); err != nil {
		a.log.Warn("history write failed", "error", err)
	}
}
