package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/jobs"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "kotae",
		"endpoints": map[string]string{
			"POST /upload":   "upload a document for ingestion",
			"GET /job/{id}":  "poll an ingestion job",
			"POST /query":    "ask a question over the ingested documents",
			"GET /metrics":   "query latency summary",
			"GET /health":    "liveness",
			"GET /api/v1/status": "document and index counts",
		},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.cfg.Upload.MaxFileSizeBytes() {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSizeBytes())
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "multipart form with a 'file' field is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !s.extensionAllowed(ext) {
		s.respondError(w, http.StatusBadRequest, "unsupported file type: "+ext)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(content) == 0 {
		s.respondError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	s.logger.Debug("upload request", zap.String("document", name), zap.Int("bytes", len(content)))
	jobID, err := s.pipeline.Enqueue(name, content, ext)
	if err != nil {
		if errors.Is(err, ingest.ErrQueueFull) {
			s.respondJSON(w, http.StatusServiceUnavailable, &models.UploadResponse{
				JobID:   jobID,
				Status:  string(models.JobFailed),
				Message: "ingestion queue full, retry later",
			})
			return
		}
		s.logger.Error("enqueue failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusAccepted, &models.UploadResponse{
		JobID:   jobID,
		Status:  string(models.JobQueued),
		Message: "document accepted for ingestion",
	})
}

func (s *Server) extensionAllowed(ext string) bool {
	if !extract.NewExtractor().Supported(ext) {
		return false
	}
	for _, allowed := range s.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.Get(id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.JobStatusResponse{
		JobID:  job.ID,
		Status: string(job.State),
		Detail: job.Detail,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))
	resp, err := s.retriever.Answer(r.Context(), &req)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		switch {
		case errors.Is(err, ai.ErrEmbeddingUnavailable), errors.Is(err, ai.ErrGenerationUnavailable):
			s.respondError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, vector.ErrStoreUnavailable):
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.recorder.Summary())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"vector_index_size": s.index.Size(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":         docCount,
		"chunks":            chunkCount,
		"vector_index_size": s.index.Size(),
	}

	configInfo := map[string]interface{}{
		"embedding_dimensions": s.cfg.AI.Dimensions,
		"chunk_size":           s.cfg.Chunking.Size,
		"chunk_overlap":        s.cfg.Chunking.Overlap,
		"top_k":                s.cfg.Retrieval.TopK,
		"relevance_threshold":  s.cfg.Retrieval.RelevanceThreshold,
		"database_path":        s.cfg.Storage.DatabasePath,
		"vector_index_path":    s.cfg.Storage.VectorIndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.cfg.Storage.DatabasePath,
		s.cfg.Storage.VectorIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.cfgMu.Lock()
	s.cfg.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.cfg)
	s.cfgMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
