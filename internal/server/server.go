// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/jobs"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// DirectoryWatcher is the subset of the watcher the API needs for the
// watch-directory management endpoints.
type DirectoryWatcher interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Kotae API.
type Server struct {
	pipeline  *ingest.Pipeline
	jobs      jobs.Store
	retriever *retriever.Retriever
	storage   storage.Storage
	index     vector.Index
	recorder  *metrics.Aggregator
	cfg       *config.Config
	logger    *zap.Logger
	server    *http.Server

	watch      DirectoryWatcher
	configPath string
	cfgMu      sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *ingest.Pipeline,
	jobStore jobs.Store,
	r *retriever.Retriever,
	store storage.Storage,
	index vector.Index,
	recorder *metrics.Aggregator,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  pipeline,
		jobs:      jobStore,
		retriever: r,
		storage:   store,
		index:     index,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetWatch enables the watch-directory endpoints. configPath, when not
// empty, is where directory changes are persisted.
func (s *Server) SetWatch(w DirectoryWatcher, configPath string) {
	s.watch = w
	s.configPath = configPath
}

// Router builds the HTTP routing table. Split from Start for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.With(s.rateLimit(s.cfg.RateLimit.UploadPerMinute)).Post("/upload", s.handleUpload)
	r.Get("/job/{id}", s.handleJobStatus)
	r.With(s.rateLimit(s.cfg.RateLimit.QueryPerMinute)).Post("/query", s.handleQuery)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
