package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/gifforge/internal/api"
	"github.com/heimdex/gifforge/internal/config"
	"github.com/heimdex/gifforge/internal/db"
	"github.com/heimdex/gifforge/internal/jobs"
	"github.com/heimdex/gifforge/internal/logging"
	"github.com/heimdex/gifforge/internal/pipeline"
	"github.com/heimdex/gifforge/internal/toolcheck"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			return serve(cmd.Context(), cfg, ctx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address, overrides server.bind")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, cc *commandContext) error {
	startTime := time.Now()
	logger := cc.logger()
	logger.Info("starting gifforge",
		"version", config.Version,
		"storage_dir", logging.SanitizePath(cfg.Paths.StorageDir),
		"engine", cfg.Transcribe.Engine,
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	lock, err := a.storage.Lock()
	if err != nil {
		return lockHint(err, a.storage.Root())
	}
	defer lock.Unlock()

	database, err := db.New(cfg.Paths.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	repo := jobs.NewRepository(database.Conn())

	doctor := toolcheck.NewCachedDoctor(a.checker, doctorTTL, logging.WithComponent(logger, "doctor"))
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if report, err := doctor.Refresh(probeCtx); err != nil {
		logger.Warn("initial tool probe failed", "error", err)
	} else if !report.Ready() {
		logger.Warn("required tools missing, jobs will fail until installed", "tools", report.Missing())
	}
	probeCancel()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	executor := pipeline.NewExecutor(a.orchestrator, a.storage, a.acquirer, logging.WithComponent(logger, "executor"))
	runner := jobs.NewRunner(repo, executor, jobs.RunnerOptions{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		JobTimeout: cfg.JobTimeout(),
	}, logging.WithComponent(logger, "runner"))
	runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Bind:           cfg.Server.Bind,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Storage:        a.storage,
		Repository:     repo,
		Runner:         runner,
		Doctor:         doctor,
		Logger:         logging.WithComponent(logger, "api"),
		StartTime:      startTime,
		Version:        config.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("HTTP server error", "error", serveErr)
		}
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	cancel()
	runner.Wait()

	logger.Info("shutdown complete")
	return serveErr
}
