// Package main is the kensaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/mcp"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/vector"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/hyperjump/kensaku/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config file means built-in defaults. KENSAKU_* environment
// variables and a .env file in the current directory are applied on top.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	cfg, resolved, err := readConfigFile(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.ApplyEnv(cfg, ""); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, resolved, nil
}

func readConfigFile(path string) (*config.Config, string, error) {
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "mcp":
		runMCP()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds a logger. Any failure exits the process.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag, zap.String("version", version))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

// runMCP serves the search tools over stdio. stdout carries the protocol, so
// everything else goes to the logger (stderr).
func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := mcp.NewServer(components.Engine, cfg, version, logger)
	if err := srv.ServeStdio(); err != nil {
		logger.Error("MCP server stopped", zap.Error(err))
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "config file to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*path, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

// writeDefaultConfig saves a config with every default filled in and a local
// memory index selected, so "kensaku index" works without further edits.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := &config.Config{}
	cfg.Vector.Type = config.VectorTypeMemory
	config.ApplyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return config.Save(path, cfg)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
		zap.String("vector_type", cfg.Vector.Type),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, components.Indexer, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage and query syntax hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kensaku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Filters narrow the search; the remaining words are embedded and matched by meaning.
  repo:<name>    only snippets from this repository
  lang:<name>    only this language (case-insensitive)
  path:<text>    only paths containing this text
  branch:<ref>   only this branch or ref

Examples:
  kensaku search parse json
  kensaku search "open a database connection" lang:go
  kensaku search --limit 3 repo:kensaku path:internal/ retry with backoff
  kensaku search --output json "read config file"
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "kensaku search parse json -limit 3"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run the search in-process)")
	limit := fs.Int("limit", -1, "number of snippets (negative = server default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := &models.SemanticRequest{Query: queryStr}
	if *limit >= 0 {
		req.Limit = limit
	}

	var response *models.SemanticResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(context.Background(), *serverURL, req)
	} else {
		response, err = searchInProcess(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchInProcess(configPath string, req *models.SemanticRequest) (*models.SemanticResponse, error) {
	cfg, _, logger := setup(configPath, false)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	defer components.Close()
	return components.Engine.Search(ctx, req)
}

// apiError is the error body returned by the server.
type apiError struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// responseError turns a non-2xx response into an error carrying the server's message.
func responseError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body apiError
	if err := json.Unmarshal(b, &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, body.Error.Kind, body.Error.Message)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func searchViaHTTP(ctx context.Context, serverURL string, req *models.SemanticRequest) (*models.SemanticResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var response models.SemanticResponse
	if err := postJSON(ctx, serverURL+"/api/v1/semantic/chunks", body, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func postJSON(ctx context.Context, target string, body []byte, wantStatus int, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var st *models.IndexStatus
	if *serverURL != "" {
		st, err = statusViaHTTP(context.Background(), *serverURL)
	} else {
		st, err = statusInProcess(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusInProcess(configPath string) (*models.IndexStatus, error) {
	cfg, _, logger := setup(configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	defer components.Close()
	return server.DescribeStatus(ctx, components.Engine, cfg, logger)
}

func statusViaHTTP(ctx context.Context, serverURL string) (*models.IndexStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var st models.IndexStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

func printIndexUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kensaku index [flags] <directory | snippets.jsonl>\n\n")
	fmt.Fprintf(fs.Output(), "A directory is chunked into line windows; a .jsonl file holds one snippet record per line.\n\n")
	fs.PrintDefaults()
}

// splitExtensions parses a comma-separated extension list such as ".go,.rs".
func splitExtensions(s string) []string {
	var exts []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "send snippets to a running server instead of writing the index directly")
	repo := fs.String("repo", "", "repository name (default: directory name)")
	ref := fs.String("ref", "main", "repository ref or branch")
	exts := fs.String("ext", "", "comma-separated file extensions to index (default: known source languages)")
	chunkLines := fs.Int("chunk-lines", 30, "lines per snippet")
	chunkOverlap := fs.Int("chunk-overlap", 5, "lines shared by consecutive snippets")
	batchSize := fs.Int("batch-size", 32, "snippets per embedding batch")
	concurrency := fs.Int("concurrency", 4, "embedding batches in flight")
	watch := fs.Bool("watch", false, "keep running and re-index files of the directory as they change")
	fs.Usage = func() { printIndexUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		printIndexUsage(fs)
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := indexer.Source{
		RepoName:   *repo,
		RepoRef:    *ref,
		Extensions: splitExtensions(*exts),
	}
	chunker := indexer.NewChunker(*chunkLines, *chunkOverlap)
	inputs, err := collectInputs(ctx, path, src, chunker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading snippets failed: %v\n", err)
		os.Exit(1)
	}

	var sink indexFunc
	if *serverURL != "" {
		sink = func(ctx context.Context, inputs []models.SnippetInput) (int, error) {
			return indexViaHTTP(ctx, *serverURL, inputs, *batchSize)
		}
	} else {
		var closeSink func()
		sink, closeSink, err = openIndexSink(ctx, cfg, logger, indexer.WithBatchSize(*batchSize), indexer.WithConcurrency(*concurrency))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
			os.Exit(1)
		}
		defer closeSink()
	}

	if len(inputs) == 0 {
		fmt.Println("Nothing to index")
	} else {
		n, err := sink(ctx, inputs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d snippet(s) from %s\n", n, path)
	}

	if *watch {
		fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", path)
		if err := watchAndIndex(ctx, path, src, chunker, sink, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// indexFunc writes snippets to an index, locally or through a server.
type indexFunc func(ctx context.Context, inputs []models.SnippetInput) (int, error)

// watchAndIndex re-chunks and indexes every changed source file under root until
// ctx is done. Snippets of deleted files stay in the index.
func watchAndIndex(ctx context.Context, root string, src indexer.Source, chunker *indexer.Chunker, sink indexFunc, logger *zap.Logger) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("--watch needs a directory, got %s", root)
	}
	w := watcher.NewWatcher(root, src.Matches, func(path string) {
		inputs, err := indexer.CollectFile(root, path, src, chunker)
		if err != nil {
			logger.Warn("collect changed file failed", zap.String("path", path), zap.Error(err))
			return
		}
		if len(inputs) == 0 {
			return
		}
		n, err := sink(ctx, inputs)
		if err != nil {
			logger.Error("re-index failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("re-indexed file", zap.String("path", path), zap.Int("snippets", n))
	}, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	<-ctx.Done()
	return nil
}

// collectInputs reads a JSONL snippet file or chunks a source directory.
func collectInputs(ctx context.Context, path string, src indexer.Source, chunker *indexer.Chunker) ([]models.SnippetInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return indexer.CollectDirectory(ctx, path, src, chunker)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return indexer.ReadSnippetsJSONL(f)
}

// collectionEnsurer is implemented by indexes whose storage must be created before writes.
type collectionEnsurer interface {
	EnsureCollection(ctx context.Context) error
}

// openIndexSink initializes the local index once and returns a writer into it.
func openIndexSink(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...indexer.IndexerOption) (indexFunc, func(), error) {
	components, err := initializeComponents(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	if components.Indexer == nil {
		components.Close()
		return nil, nil, search.ErrNotConfigured
	}
	if ensurer, ok := components.Index.(collectionEnsurer); ok {
		if err := ensurer.EnsureCollection(ctx); err != nil {
			components.Close()
			return nil, nil, err
		}
	}
	return components.Indexer.IndexSnippets, components.Close, nil
}

func indexInProcess(ctx context.Context, cfg *config.Config, logger *zap.Logger, inputs []models.SnippetInput, opts ...indexer.IndexerOption) (int, error) {
	sink, closeSink, err := openIndexSink(ctx, cfg, logger, opts...)
	if err != nil {
		return 0, err
	}
	defer closeSink()
	return sink(ctx, inputs)
}

func indexViaHTTP(ctx context.Context, serverURL string, inputs []models.SnippetInput, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 32
	}
	target, err := url.JoinPath(serverURL, "/api/v1/snippets")
	if err != nil {
		return 0, err
	}
	total := 0
	for start := 0; start < len(inputs); start += batchSize {
		body, err := json.Marshal(map[string]any{"snippets": inputs[start:min(start+batchSize, len(inputs))]})
		if err != nil {
			return total, err
		}
		var out struct {
			Indexed int `json:"indexed"`
		}
		if err := postJSON(ctx, target, body, http.StatusCreated, &out); err != nil {
			return total, fmt.Errorf("batch at %d: %w", start, err)
		}
		total += out.Indexed
	}
	return total, nil
}

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Index    vector.Index
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases the index (and its store) and the embedder.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents builds the search backend described by cfg. Without a
// configured vector index the engine answers every search with a configuration error
// and Indexer is nil.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, idxOpts ...indexer.IndexerOption) (*Components, error) {
	opts := search.OptionsFromConfig(cfg)
	if !cfg.Vector.Configured() {
		logger.Warn("vector index not configured; semantic search is disabled")
		return &Components{Engine: search.NewEngine(nil, opts, search.WithLogger(logger))}, nil
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding, cfg.Vector.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var store storage.PointStore
	if cfg.Vector.Type == config.VectorTypeMemory {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		store = s
	}
	index, err := vector.NewIndex(ctx, cfg.Vector, store, logger)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	logger.Info("vector index initialized",
		zap.String("type", index.Type()),
		zap.Int("dimensions", cfg.Vector.Dimensions),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	engine := search.NewEngine(search.NewBackend(index, embedder), opts, search.WithLogger(logger))
	idx := indexer.NewIndexer(index, embedder, append([]indexer.IndexerOption{indexer.WithLogger(logger)}, idxOpts...)...)
	return &Components{
		Embedder: embedder,
		Index:    index,
		Engine:   engine,
		Indexer:  idx,
	}, nil
}

func printUsage() {
	fmt.Println(`kensaku - Semantic code snippet search

Usage:
  kensaku server [flags]                      Start the HTTP server
  kensaku search [flags] <query>              Search code snippets
  kensaku index [flags] <dir | file.jsonl>    Index a source tree or snippet file
  kensaku status [flags]                      Show index status
  kensaku init [--config path] [--force]      Write a default config file
  kensaku mcp [--config path]                 Serve search tools over MCP stdio
  kensaku version                             Show version
  kensaku help                                Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kensaku/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to search in-process.
  --limit int        Number of snippets (default: server default)
  --output string    Output format: text, compact or json (default: text)

Index Flags:
  --config string         Config file path
  --server string         Send snippets to a running server instead of writing the index directly
  --repo string           Repository name (default: directory name)
  --ref string            Repository ref (default: main)
  --ext string            Comma-separated extensions to index
  --chunk-lines int       Lines per snippet (default: 30)
  --chunk-overlap int     Overlapping lines (default: 5)
  --batch-size int        Snippets per embedding batch (default: 32)
  --concurrency int       Embedding batches in flight (default: 4)
  --watch                 Keep running and re-index changed files

Status Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read the index directly.
  --output string    Output format: text or json (default: text)

Environment:
  KENSAKU_VECTOR_TYPE, KENSAKU_QDRANT_HOST, KENSAKU_QDRANT_API_KEY, KENSAKU_EMBEDDING_PROVIDER,
  KENSAKU_EMBEDDING_API_KEY, ... override the config file; a .env file in the current directory is read too.

Examples:
  kensaku server
  kensaku index --repo kensaku --ref main ./
  kensaku index snippets.jsonl
  kensaku search "parse json" lang:go
  kensaku search --output json --limit 5 "open database connection"
  kensaku status --output json`)
}
