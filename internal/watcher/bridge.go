package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// IngestHandler returns an onIngest callback that reads a dropped file and
// enqueues it on the pipeline. Queue-full rejections are logged and the
// file is left in place for a later retry.
func IngestHandler(pipeline *ingest.Pipeline, logger *zap.Logger) func(path string) {
	return func(path string) {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("watch: read dropped file failed", zap.String("path", path), zap.Error(err))
			return
		}
		name := filepath.Base(path)
		ext := strings.ToLower(filepath.Ext(name))
		jobID, err := pipeline.Enqueue(name, content, ext)
		if err != nil {
			if errors.Is(err, ingest.ErrQueueFull) {
				logger.Warn("watch: ingestion queue full", zap.String("path", path))
				return
			}
			logger.Error("watch: enqueue failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("watch: document enqueued", zap.String("document", name), zap.String("job_id", jobID))
	}
}

// RemoveHandler returns an onRemove callback that deletes a vanished
// document's chunks from the index and storage.
func RemoveHandler(store storage.Storage, index vector.Index, logger *zap.Logger) func(path string) {
	return func(path string) {
		name := filepath.Base(path)
		ctx := context.Background()
		chunks, err := store.GetChunksByDocument(ctx, name)
		if err != nil {
			logger.Warn("watch: load chunks for removal failed", zap.String("document", name), zap.Error(err))
			return
		}
		if len(chunks) == 0 {
			return
		}
		keys := make([]string, len(chunks))
		for i, ch := range chunks {
			keys[i] = ch.Key()
		}
		if err := index.Remove(ctx, keys); err != nil {
			logger.Warn("watch: remove vectors failed", zap.String("document", name), zap.Error(err))
		}
		if err := store.DeleteDocument(ctx, name); err != nil {
			logger.Warn("watch: delete document failed", zap.String("document", name), zap.Error(err))
			return
		}
		logger.Info("watch: document removed", zap.String("document", name), zap.Int("chunks", len(chunks)))
	}
}
