package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/gifforge/internal/jobs"
	"github.com/heimdex/gifforge/internal/storage"
	"github.com/heimdex/gifforge/internal/toolcheck"
)

// Submitter queues jobs for execution. *jobs.Runner implements it.
type Submitter interface {
	Submit(ctx context.Context, job *jobs.Job) (*jobs.Ticket, error)
	ActiveJobs() int
	QueuedJobs() int
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Bind           string
	CORSOrigins    []string
	MaxUploadBytes int64
	Storage        *storage.JobStorage
	Repository     jobs.Repository
	Runner         Submitter
	Doctor         *toolcheck.CachedDoctor
	Logger         *slog.Logger
	StartTime      time.Time
	Version        string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Bind,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			// Synchronous submits hold the connection for the whole job.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

