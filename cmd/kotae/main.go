// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/jobs"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kotae server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "upload":
		runUpload()
	case "job":
		runJob()
	case "status":
		runStatus()
	case "metrics":
		runMetrics()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (drop directories, ingestion steps, etc.)")
	mock := fs.Bool("mock-ai", false, "use deterministic in-process AI stand-ins instead of the model service")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Upload.AllowedExtensions,
		cfg.Watch.RecursiveOrDefault(),
		watcher.IngestHandler(components.Pipeline, logger),
		watcher.RemoveHandler(components.Storage, components.Index, logger),
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Pipeline,
		components.Jobs,
		components.Retriever,
		components.Storage,
		components.Index,
		components.Recorder,
		cfg,
		logger,
	)
	srv.SetWatch(watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.Index != nil {
		if err := components.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the
// question to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer in-process without the server)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kotae ask [flags] <question>\n\n")
		fmt.Fprintf(fs.Output(), "Question is all remaining arguments joined by spaces.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(askArgs)

	question := buildQuestion(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	req := &models.QueryRequest{Question: question, TopK: *topK}

	if *serverURL != "" {
		response, err := askViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteQueryResponse(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct mode: build the stack in-process. Needs the model service
	// reachable and exclusive access to the database.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid question: %v\n", err)
		os.Exit(1)
	}
	response, err := components.Retriever.Answer(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQueryResponse(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	wait := fs.Bool("wait", false, "poll the job until it completes or fails")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	upload, status, err := uploadViaHTTP(*serverURL, filepath.Base(path), content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	if status == http.StatusServiceUnavailable {
		fmt.Fprintf(os.Stderr, "Server busy: %s (job %s)\n", upload.Message, upload.JobID)
		os.Exit(1)
	}
	fmt.Printf("Accepted: job %s (%s)\n", upload.JobID, upload.Status)

	if !*wait {
		return
	}
	for {
		time.Sleep(500 * time.Millisecond)
		job, err := jobViaHTTP(*serverURL, upload.JobID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Poll failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  %s: %s\n", job.Status, job.Detail)
		if job.Status == string(models.JobCompleted) {
			return
		}
		if job.Status == string(models.JobFailed) {
			os.Exit(1)
		}
	}
}

func uploadViaHTTP(serverURL, filename string, content []byte) (*models.UploadResponse, int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, 0, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, 0, err
	}
	if err := mw.Close(); err != nil {
		return nil, 0, err
	}

	resp, err := http.Post(serverURL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusServiceUnavailable {
		b, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var upload models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &upload, resp.StatusCode, nil
}

func runJob() {
	fs := flag.NewFlagSet("job", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae job [flags] <job-id>")
		os.Exit(1)
	}
	job, err := jobViaHTTP(*serverURL, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Job lookup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("job:    %s\n", job.JobID)
	fmt.Printf("status: %s\n", job.Status)
	if job.Detail != "" {
		fmt.Printf("detail: %s\n", job.Detail)
	}
}

func jobViaHTTP(serverURL, jobID string) (*models.JobStatusResponse, error) {
	resp, err := http.Get(serverURL + "/job/" + url.PathEscape(jobID))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var job models.JobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &job, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents       int64                  `json:"documents"`
	Chunks          int64                  `json:"chunks"`
	VectorIndexSize int                    `json:"vector_index_size"`
	DiskUsageBytes  *int64                 `json:"disk_usage_bytes,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		ctx := context.Background()
		docCount, err := store.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := store.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{Documents: docCount, Chunks: chunkCount}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:          %d   # count of ingested documents\n", status.Documents)
		fmt.Printf("chunks:             %d   # count of text chunks\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d   # count of vectors in the index\n", status.VectorIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # database + index snapshot on disk\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runMetrics() {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/metrics")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var summary models.MetricsSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteMetricsSummary(os.Stdout, &summary, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kotae watch <add|remove|list> [path]")
		fmt.Println("  kotae watch add <path>     Add drop directory")
		fmt.Println("  kotae watch remove <path>  Remove drop directory")
		fmt.Println("  kotae watch list           List drop directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kotae watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kotae watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Index     vector.Index
	Embedder  ai.Embedder
	Generator ai.Generator
	Jobs      jobs.Store
	Pipeline  *ingest.Pipeline
	Recorder  *metrics.Aggregator
	Retriever *retriever.Retriever
}

func (c *Components) Close() {
	if c.Pipeline != nil {
		c.Pipeline.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, mockAI bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder ai.Embedder
	var generator ai.Generator
	if mockAI {
		embedder = ai.NewMockEmbedder(cfg.AI.Dimensions)
		generator = &ai.MockGenerator{Answer: "mock answer (running with -mock-ai)"}
	} else {
		embedder, err = ai.NewOpenAIEmbedder(cfg.AI.Host, cfg.AI.EmbeddingModel, cfg.AI.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		generator, err = ai.NewOpenAIGenerator(cfg.AI.Host, cfg.AI.GenerationModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		embedder = ai.NewCachedEmbedder(embedder, cfg.AI.CacheSize)
	}

	index, err := vector.NewMemoryIndex(cfg.AI.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := index.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized", zap.Int("size", index.Size()))

	chunker, err := ingest.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	jobStore := jobs.NewMemoryStore()
	pipeline, err := ingest.NewPipeline(
		jobStore,
		store,
		index,
		embedder,
		extract.NewExtractor(),
		chunker,
		cfg.Ingest.Workers,
		ingest.WithLogger(logger),
		ingest.WithStepTimeout(cfg.AI.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	recorder := metrics.NewAggregator(cfg.Metrics.RecentWindow)
	rt := retriever.New(index, store, embedder, generator, recorder,
		retriever.WithTopK(cfg.Retrieval.TopK),
		retriever.WithRelevanceThreshold(cfg.Retrieval.RelevanceThreshold),
		retriever.WithLogger(logger),
	)

	return &Components{
		Storage:   store,
		Index:     index,
		Embedder:  embedder,
		Generator: generator,
		Jobs:      jobStore,
		Pipeline:  pipeline,
		Recorder:  recorder,
		Retriever: rt,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Document question answering over your own files

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ask [flags] <question>    Ask a question over the ingested documents
  kotae upload [flags] <file>     Upload a document for ingestion
  kotae job [flags] <job-id>      Show an ingestion job's status
  kotae status [flags]            Show document/index status
  kotae metrics [flags]           Show query latency metrics
  kotae watch <add|remove|list>   Manage drop directories
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (drop directories, ingestion steps, etc.)
  --mock-ai          Use deterministic in-process AI stand-ins (no model service needed)

Ask Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to answer in-process.
  --top-k int        Number of chunks to retrieve (0 = configured default)
  --output string    Output format: text or json (default: text)

Upload Flags:
  --server string    Server URL (default: http://localhost:8080)
  --wait             Poll the job until it completes or fails

Examples:
  kotae server
  kotae upload --wait manual.pdf
  kotae ask "what does the warranty cover"
  kotae ask --output json "what does the warranty cover"
  kotae job 9f6c1a0e-...
  kotae status
  kotae metrics
  kotae watch add /path/to/drop`)
}
