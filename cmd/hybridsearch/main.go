// Package main is the hybridsearch CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hybridsearch/internal/cli"
	"github.com/hyperjump/hybridsearch/internal/config"
	"github.com/hyperjump/hybridsearch/internal/embedding"
	"github.com/hyperjump/hybridsearch/internal/indexer"
	"github.com/hyperjump/hybridsearch/internal/keyword"
	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/internal/search"
	"github.com/hyperjump/hybridsearch/internal/server"
	"github.com/hyperjump/hybridsearch/internal/storage"
	"github.com/hyperjump/hybridsearch/internal/vector"
	"github.com/hyperjump/hybridsearch/internal/watcher"
	"github.com/hyperjump/hybridsearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hybridsearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). A missing file yields the
// defaults. Environment variables (and a .env file in the working directory) override
// file values. Returns the config and the path that was resolved.
func loadConfig(path string) (*config.Config, string, error) {
	resolved := path
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				resolved = fallback
			}
		}
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadOrDefault(resolved)
	if err != nil {
		return nil, "", err
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, resolved, nil
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
	case "version", "--version", "-v":
		fmt.Printf("hybridsearch version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging")
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
		zap.String("lexical_backend", cfg.Lexical.Backend),
		zap.String("vector_backend", cfg.Vector.Backend),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	r := &reloader{service: components.Service, indexer: components.Indexer, current: cfg, logger: logger}
	var watched []string
	if _, statErr := os.Stat(resolvedConfigPath); statErr == nil {
		watched = append(watched, resolvedConfigPath)
	}
	if components.Indexer != nil && cfg.Storage.SeedPath != "" {
		watched = append(watched, cfg.Storage.SeedPath)
	}
	if len(watched) > 0 {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		r.watcher = watcher.NewWatcher(watched, r.onChange, watchOpts...)
		if err := r.watcher.Start(watchCtx); err != nil {
			logger.Warn("hot reload disabled", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Service, components.QueryLog, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// reloader applies changes to the config file and to the seed document file.
// Only search settings and the seed documents change at runtime; other changes
// are reported as needing a restart.
type reloader struct {
	service *search.Service
	indexer *indexer.Indexer // nil when no engine is local
	watcher *watcher.Watcher // nil when hot reload is off
	current *config.Config
	logger  *zap.Logger
	mu      sync.Mutex
}

func (r *reloader) onChange(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexer != nil && samePath(path, r.current.Storage.SeedPath) {
		r.reloadSeed(path)
		return
	}
	r.reloadConfig(path)
}

func (r *reloader) reloadConfig(path string) {
	cfg, _, err := loadConfig(path)
	if err != nil {
		r.logger.Warn("config reload failed, keeping current settings", zap.String("path", path), zap.Error(err))
		return
	}
	prev := r.current
	if changed := restartOnlyChanges(prev, cfg); len(changed) > 0 {
		r.logger.Warn("settings changed that only apply after a restart",
			zap.String("path", path), zap.Strings("changed", changed))
	}
	r.service.UpdateSettings(&cfg.Search)
	s := r.service.Settings()
	r.logger.Info("search settings reloaded",
		zap.Float64("default_alpha", s.DefaultAlpha),
		zap.Int("default_limit", s.DefaultLimit),
		zap.Int("max_limit", s.MaxLimit),
	)
	r.current = cfg
	if r.indexer != nil && !samePath(prev.Storage.SeedPath, cfg.Storage.SeedPath) {
		r.switchSeed(prev.Storage.SeedPath, cfg.Storage.SeedPath)
	}
}

// switchSeed moves the watch from the old seed file to the new one and loads it.
func (r *reloader) switchSeed(oldPath, newPath string) {
	if r.watcher != nil && oldPath != "" {
		if err := r.watcher.RemoveFile(oldPath); err != nil {
			r.logger.Warn("failed to unwatch seed file", zap.String("path", oldPath), zap.Error(err))
		}
	}
	if newPath == "" {
		r.logger.Warn("storage.seed_path removed; loaded documents are kept")
		return
	}
	if r.watcher != nil {
		if err := r.watcher.AddFile(newPath); err != nil {
			r.logger.Warn("failed to watch seed file", zap.String("path", newPath), zap.Error(err))
		}
	}
	r.reloadSeed(newPath)
}

func (r *reloader) reloadSeed(path string) {
	if _, err := r.indexer.LoadFile(context.Background(), path); err != nil {
		r.logger.Warn("seed reload failed", zap.String("path", path), zap.Error(err))
	}
}

// restartOnlyChanges lists the config sections that differ and are not hot-swapped.
func restartOnlyChanges(prev, next *config.Config) []string {
	var changed []string
	if prev.Server.Host != next.Server.Host || prev.Server.Port != next.Server.Port ||
		!slices.Equal(prev.Server.CORSOrigins, next.Server.CORSOrigins) {
		changed = append(changed, "server")
	}
	if prev.Lexical != next.Lexical {
		changed = append(changed, "lexical")
	}
	if prev.Vector != next.Vector {
		changed = append(changed, "vector")
	}
	if prev.Embedding != next.Embedding {
		changed = append(changed, "embedding")
	}
	if prev.Search.FetchLimit != next.Search.FetchLimit {
		changed = append(changed, "search.fetch_limit")
	}
	if prev.Search.BackendTimeout != next.Search.BackendTimeout {
		changed = append(changed, "search.backend_timeout")
	}
	if prev.Storage.QueryLogPath != next.Storage.QueryLogPath {
		changed = append(changed, "storage.query_log_path")
	}
	return changed
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: hybridsearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results combine lexical and vector similarity. --alpha weights the lexical side
(1 = lexical only, 0 = vector only); omit it to use the server default.

Examples:
  hybridsearch search machine learning
  hybridsearch search --alpha 0.8 --limit 20 "vector databases"
  hybridsearch search --source-type blog,docs --tags go --date-from 2024-01-01 generics
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
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

type searchFlags struct {
	limit      int
	alpha      float64
	alphaSet   bool
	sourceType string
	tags       string
	dateFrom   string
	dateTo     string
}

// buildSearchRequest turns parsed flags into a request. Zero limit and an unset
// alpha are left to the server defaults.
func buildSearchRequest(query string, f searchFlags) *models.SearchRequest {
	req := &models.SearchRequest{Query: query}
	if f.limit != 0 {
		limit := f.limit
		req.Limit = &limit
	}
	if f.alphaSet {
		alpha := f.alpha
		req.Alpha = &alpha
	}
	filters := &models.Filters{
		SourceType: cli.SplitList(f.sourceType),
		Tags:       cli.SplitList(f.tags),
		DateFrom:   strings.TrimSpace(f.dateFrom),
		DateTo:     strings.TrimSpace(f.dateTo),
	}
	if !filters.IsEmpty() {
		req.Filters = filters
	}
	return req
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	var f searchFlags
	fs.IntVar(&f.limit, "limit", 0, "number of results (0 = server default)")
	fs.Float64Var(&f.alpha, "alpha", 0, "lexical weight in [0,1] (default: server default)")
	fs.StringVar(&f.sourceType, "source-type", "", "comma-separated source types (any of)")
	fs.StringVar(&f.tags, "tags", "", "comma-separated tags (all of)")
	fs.StringVar(&f.dateFrom, "date-from", "", "earliest published date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.dateTo, "date-to", "", "latest published date, inclusive (YYYY-MM-DD)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "alpha" {
			f.alphaSet = true
		}
	})

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	var format cli.SearchOutputFormat
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	client := cli.NewClient(*serverURL, *timeout)
	response, err := client.Search(context.Background(), buildSearchRequest(queryStr, f))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Engine   *search.Engine
	Service  *search.Service
	QueryLog storage.QueryLog
	// Indexer loads seed documents into the embedded engines; nil when both are remote.
	Indexer *indexer.Indexer
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.QueryLog != nil {
		_ = c.QueryLog.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	httpClient := &http.Client{}

	lexical, err := keyword.NewLexicalEngine(&cfg.Lexical, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lexical engine: %w", err)
	}

	vectorEngine, err := vector.NewVectorEngine(&cfg.Vector, cfg.Embedding.Dimensions, httpClient)
	if err != nil {
		_ = lexical.Close()
		return nil, fmt.Errorf("failed to initialize vector engine: %w", err)
	}
	var embedder embedding.Embedder
	if vectorEngine != nil {
		embedder, err = embedding.NewEmbedder(&cfg.Embedding)
		if err != nil {
			_ = lexical.Close()
			_ = vectorEngine.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}
	logger.Info("engines initialized",
		zap.String("lexical", cfg.Lexical.Backend),
		zap.String("vector", cfg.Vector.Backend),
		zap.String("embedding", cfg.Embedding.Backend),
	)

	engine := search.NewEngine(lexical, embedder, vectorEngine, &cfg.Search, logger)
	components := &Components{Engine: engine}

	documents, _ := lexical.(indexer.DocumentIndex)
	vectors, _ := vectorEngine.(indexer.VectorIndex)
	seeder := indexer.NewIndexer(documents, vectors, embedder, indexer.WithLogger(logger))
	if seeder.Enabled() {
		components.Indexer = seeder
		if cfg.Storage.SeedPath != "" {
			if _, err := seeder.LoadFile(context.Background(), cfg.Storage.SeedPath); err != nil {
				components.Close()
				return nil, fmt.Errorf("failed to load seed documents: %w", err)
			}
		}
	} else if cfg.Storage.SeedPath != "" {
		logger.Warn("storage.seed_path ignored: lexical and vector backends are remote",
			zap.String("seed_path", cfg.Storage.SeedPath))
	}
	if bi, ok := lexical.(*keyword.BleveIndex); ok {
		if n, err := bi.DocCount(); err == nil {
			logger.Info("bleve index ready", zap.Uint64("documents", n))
			if n == 0 {
				logger.Warn("bleve index is empty; set storage.seed_path to load documents")
			}
		}
	}

	sinks := []search.RecordSink{search.NewLogSink(logger)}
	if cfg.Storage.QueryLogPath != "" {
		queryLog, err := storage.NewSQLiteQueryLog(cfg.Storage.QueryLogPath)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to initialize query log: %w", err)
		}
		components.QueryLog = queryLog
		sinks = append(sinks, queryLog)
	}
	components.Service = search.NewService(engine, &cfg.Search, logger, sinks...)
	return components, nil
}

func printUsage() {
	fmt.Println(`hybridsearch - Hybrid lexical + vector search API

Usage:
  hybridsearch server [flags]           Start the HTTP server
  hybridsearch search [flags] <query>   Query a running server
  hybridsearch version                  Show version
  hybridsearch help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/hybridsearch/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Search Flags:
  --server string       Server URL (default: http://localhost:8080)
  --limit int           Number of results (default: server default)
  --alpha float         Lexical weight in [0,1] (default: server default)
  --source-type string  Comma-separated source types
  --tags string         Comma-separated tags (all must match)
  --date-from string    Earliest published date (YYYY-MM-DD)
  --date-to string      Latest published date (YYYY-MM-DD)
  --output string       Output format: text or json (default: text)
  --timeout duration    Request timeout (default: 30s)

Environment:
  MEILI_URL, MEILI_MASTER_KEY, MEILI_INDEX, QDRANT_URL, QDRANT_COLLECTION,
  EMBEDDING_URL, EMBEDDING_MODEL, EMBEDDING_DIM, ALPHA_DEFAULT, LIMIT,
  RESULTS_LIMIT_MAX, CORS_ORIGINS, HOST, PORT, SEED_PATH

Examples:
  hybridsearch server
  hybridsearch search "machine learning algorithms"
  hybridsearch search --alpha 1 --output json "exact phrase"`)
}
