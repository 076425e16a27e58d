package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docqa/internal/api"
	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/pipeline"
)

func createServeCommand(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (default $PORT)")
	return cmd
}

func (a *app) serve() error {
	cfg := a.cfg
	log := a.log

	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, observed, err := a.engine(ctx, a.chunking())
	if err != nil {
		return err
	}

	var store pipeline.JobStore = pipeline.NewMemoryStore(cfg.JobTTL)
	if cfg.RedisAddr != "" {
		rdb, err := pipeline.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		store = pipeline.NewRedisStore(rdb, cfg.JobTTL)
		log.Info("job store", "backend", "redis", "addr", cfg.RedisAddr)
	}

	// Interface values stay nil when history is off.
	var (
		recorder pipeline.Recorder
		lister   api.HistoryLister
	)
	hist, err := a.openHistory()
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
		recorder, lister = hist, hist
		log.Info("recording history", "path", hist.Path())
	}

	orch := pipeline.NewOrchestrator(pipeline.Config{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		Loader:       document.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	}, engine, store, recorder, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, observed, lister, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before the workers go away.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		observed.Close()
	}()

	log.Info("starting docqa", "port", cfg.Port, "provider", observed.Name(), "model", observed.Model())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		orch.Stop()
		return err
	}
	<-stopped
	return nil
}
