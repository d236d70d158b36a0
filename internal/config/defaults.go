package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/db/documents.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kotae/data/indices/vectors.bin"
	}
	if cfg.AI.Host == "" {
		cfg.AI.Host = "http://localhost:11434"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.AI.GenerationModel == "" {
		cfg.AI.GenerationModel = "llama3.1"
	}
	if cfg.AI.Dimensions == 0 {
		cfg.AI.Dimensions = 768
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 10000
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.RelevanceThreshold == 0 {
		cfg.Retrieval.RelevanceThreshold = 0.5
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 10
	}
	if cfg.Upload.AllowedExtensions == nil {
		cfg.Upload.AllowedExtensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Metrics.RecentWindow == 0 {
		cfg.Metrics.RecentWindow = 10
	}
	if cfg.RateLimit.UploadPerMinute == 0 {
		cfg.RateLimit.UploadPerMinute = 10
	}
	if cfg.RateLimit.QueryPerMinute == 0 {
		cfg.RateLimit.QueryPerMinute = 30
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
