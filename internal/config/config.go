// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Upload    UploadConfig    `yaml:"upload"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chunk database and the vector index
// snapshot.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// AIConfig holds settings for the OpenAI-compatible model service.
type AIConfig struct {
	Host            string `yaml:"host"`
	EmbeddingModel  string `yaml:"embedding_model"`
	GenerationModel string `yaml:"generation_model"`
	Dimensions      int    `yaml:"dimensions"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheSize       int    `yaml:"cache_size"`
}

// Timeout returns the per-call timeout for model service requests.
func (a *AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ChunkingConfig holds the word-window chunker settings.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig holds query-path settings.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
}

// UploadConfig holds upload acceptance settings.
type UploadConfig struct {
	MaxFileSizeMB     int      `yaml:"max_file_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (u *UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) << 20
}

// IngestConfig holds ingestion worker settings.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// MetricsConfig holds query metrics settings.
type MetricsConfig struct {
	RecentWindow int `yaml:"recent_window"`
}

// RateLimitConfig holds per-client request rate limits, in requests per
// minute. Zero disables the limit.
type RateLimitConfig struct {
	UploadPerMinute int `yaml:"upload_per_minute"`
	QueryPerMinute  int `yaml:"query_per_minute"`
}

// WatchConfig holds drop-directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
