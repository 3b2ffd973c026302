package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heimdex/gifforge/internal/acquire"
	"github.com/heimdex/gifforge/internal/caption"
	"github.com/heimdex/gifforge/internal/config"
	"github.com/heimdex/gifforge/internal/logging"
	"github.com/heimdex/gifforge/internal/media"
	"github.com/heimdex/gifforge/internal/pipeline"
	"github.com/heimdex/gifforge/internal/render"
	"github.com/heimdex/gifforge/internal/storage"
	"github.com/heimdex/gifforge/internal/toolcheck"
	"github.com/heimdex/gifforge/internal/transcribe"
)

const doctorTTL = 5 * time.Minute

// app holds the collaborators shared by serve and make.
type app struct {
	storage      *storage.JobStorage
	orchestrator *pipeline.Orchestrator
	acquirer     *acquire.Fetcher
	checker      *toolcheck.Checker
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	runner := media.NewExecRunner(logging.WithComponent(logger, "exec"))
	ff := media.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, runner)

	store, err := storage.New(cfg.Paths.StorageDir)
	if err != nil {
		return nil, err
	}

	engine, err := transcribe.New(transcribe.Options{
		Engine:       cfg.Transcribe.Engine,
		WhisperBin:   cfg.Transcribe.WhisperBin,
		WhisperModel: cfg.Transcribe.WhisperModel,
		Language:     cfg.Transcribe.Language,
		BaseURL:      cfg.Transcribe.BaseURL,
		APIKey:       cfg.Transcribe.APIKey,
		Model:        cfg.Transcribe.Model,
		Timeout:      cfg.TranscribeTimeout(),
	}, runner, logging.WithComponent(logger, "transcribe"))
	if err != nil {
		return nil, fmt.Errorf("build transcription engine: %w", err)
	}

	compositor := caption.NewCompositor(cfg.Render.FontPath, logger)
	renderer := render.NewRenderer(ff, compositor, render.DefaultOptions(), logging.WithComponent(logger, "render"))

	return &app{
		storage:      store,
		orchestrator: pipeline.NewOrchestrator(ff, engine, renderer, logging.WithComponent(logger, "pipeline")),
		acquirer: acquire.New(acquire.Options{
			YtDlpPath: cfg.Tools.YtDlp,
			MaxBytes:  cfg.MaxUploadBytes(),
		}, runner, logging.WithComponent(logger, "acquire")),
		checker: toolcheck.NewChecker(toolcheck.DefaultSpecs(toolOptions(cfg)), runner),
	}, nil
}

func toolOptions(cfg *config.Config) toolcheck.Options {
	return toolcheck.Options{
		FFmpeg:        cfg.Tools.FFmpeg,
		FFprobe:       cfg.Tools.FFprobe,
		YtDlp:         cfg.Tools.YtDlp,
		WhisperBin:    cfg.Transcribe.WhisperBin,
		WhisperModel:  cfg.Transcribe.WhisperModel,
		UseWhisperCPP: cfg.Transcribe.Engine == config.EngineWhisperCPP,
	}
}

func lockHint(err error, root string) error {
	if errors.Is(err, storage.ErrLocked) {
		return fmt.Errorf("%s is in use by another gifforge process: %w", root, err)
	}
	return err
}
