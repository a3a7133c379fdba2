package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/hybridsearch/internal/config"
	"github.com/hyperjump/hybridsearch/internal/models"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"invoice from microsoft", "-alpha", "0.5"},
			expected: []string{"-alpha", "0.5", "invoice from microsoft"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-alpha", "0.5", "invoice from microsoft"},
			expected: []string{"-alpha", "0.5", "invoice from microsoft"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"invoice from microsoft"},
			expected: []string{"invoice from microsoft"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-limit", "5"},
			expected: []string{"-limit", "5", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"golang"}, "golang"},
		{"multiple words", []string{"hybrid", "search"}, "hybrid search"},
		{"single quoted phrase", []string{"hybrid search"}, "hybrid search"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestBuildSearchRequest(t *testing.T) {
	req := buildSearchRequest("q", searchFlags{})
	if req.Limit != nil || req.Alpha != nil || req.Filters != nil {
		t.Errorf("defaults should leave optional fields nil: %+v", req)
	}

	req = buildSearchRequest("q", searchFlags{
		limit:      5,
		alpha:      0,
		alphaSet:   true,
		sourceType: "blog, docs",
		tags:       "go",
		dateFrom:   "2024-01-01",
	})
	if req.Limit == nil || *req.Limit != 5 {
		t.Errorf("limit = %v", req.Limit)
	}
	if req.Alpha == nil || *req.Alpha != 0 {
		t.Errorf("explicit alpha 0 must be sent, got %v", req.Alpha)
	}
	if req.Filters == nil || !reflect.DeepEqual(req.Filters.SourceType, []string{"blog", "docs"}) ||
		req.Filters.Tags[0] != "go" || req.Filters.DateFrom != "2024-01-01" {
		t.Errorf("filters = %+v", req.Filters)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
search:
  max_limit: 25
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 || cfg.Search.MaxLimit != 25 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_envOverridesAndMissingFile(t *testing.T) {
	t.Setenv("MEILI_URL", "http://meili.internal:7700")
	t.Setenv("RESULTS_LIMIT_MAX", "30")
	t.Setenv("ALPHA_DEFAULT", "0.25")

	cfg, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Lexical.URL != "http://meili.internal:7700" {
		t.Errorf("MEILI_URL not applied: %s", cfg.Lexical.URL)
	}
	if cfg.Search.MaxLimit != 30 || cfg.Search.DefaultAlphaOrDefault() != 0.25 {
		t.Errorf("search overrides not applied: %+v", cfg.Search)
	}
}

func TestLoadConfig_invalid(t *testing.T) {
	t.Setenv("ALPHA_DEFAULT", "1.5")
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected validation error for alpha outside [0,1]")
	}
}

const testSeed = `{"id":"d1","title":"Bayes notes","source_type":"web","content_text":"Priors and posteriors."}
{"id":"d2","title":"Monthly report","source_type":"pdf","content_text":"Revenue grew."}
`

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func localConfig(dir string) *config.Config {
	cfg := &config.Config{
		Lexical:   config.LexicalConfig{Backend: config.LexicalBleve, BleveIndexPath: filepath.Join(dir, "bleve")},
		Vector:    config.VectorConfig{Backend: config.VectorMemory},
		Embedding: config.EmbeddingConfig{Backend: config.EmbedderMock, Dimensions: 8},
		Storage: config.StorageConfig{
			QueryLogPath: filepath.Join(dir, "queries.db"),
			SeedPath:     filepath.Join(dir, "docs.jsonl"),
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func searchIDs(t *testing.T, c *Components, query string) ([]string, bool) {
	t.Helper()
	resp, err := c.Service.Search(context.Background(), &models.SearchRequest{Query: query}, "")
	if err != nil {
		t.Fatalf("Search(%q): %v", query, err)
	}
	ids := make([]string, len(resp.Hits))
	for i, h := range resp.Hits {
		ids[i] = h.ID
	}
	return ids, resp.VectorUsed
}

func TestInitializeComponents_LocalBackendsServeSeedDocuments(t *testing.T) {
	dir := t.TempDir()
	cfg := localConfig(dir)
	writeTestFile(t, cfg.Storage.SeedPath, testSeed)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()
	if components.QueryLog == nil || components.Indexer == nil {
		t.Fatalf("query log and indexer should be enabled: %+v", components)
	}
	ids, vectorUsed := searchIDs(t, components, "bayes")
	if !vectorUsed {
		t.Error("memory vector backend should be used")
	}
	if len(ids) == 0 || ids[0] != "d1" {
		t.Errorf("expected d1 first, got %v", ids)
	}
	if len(ids) != 2 {
		t.Errorf("vector side should contribute every seeded document, got %v", ids)
	}
}

func TestInitializeComponents_BadSeedFails(t *testing.T) {
	dir := t.TempDir()
	cfg := localConfig(dir)
	writeTestFile(t, cfg.Storage.SeedPath, `{"title":"no id"}`)
	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for seed document without id")
	}
}

func TestInitializeComponents_RemoteBackendsIgnoreSeed(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{SeedPath: "/nonexistent/docs.jsonl"}}
	config.ApplyDefaults(cfg)
	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()
	if components.Indexer != nil {
		t.Error("meili + qdrant have nothing to load locally")
	}
}

func TestReloader_SearchSettings(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Lexical: config.LexicalConfig{Backend: config.LexicalBleve, BleveIndexPath: filepath.Join(dir, "bleve")},
		Vector:  config.VectorConfig{Backend: config.VectorNone},
	}
	config.ApplyDefaults(cfg)
	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	configPath := filepath.Join(dir, "config.yaml")
	writeTestFile(t, configPath, `
lexical:
  backend: bleve
  bleve_index_path: ./bleve
vector:
  backend: none
search:
  default_alpha: 0.9
  max_limit: 7
`)
	r := &reloader{service: components.Service, indexer: components.Indexer, current: cfg, logger: zap.NewNop()}
	r.onChange(configPath)

	s := components.Service.Settings()
	if s.DefaultAlpha != 0.9 || s.MaxLimit != 7 {
		t.Errorf("settings not reloaded: %+v", s)
	}

	writeTestFile(t, configPath, "search: [not a map")
	r.onChange(configPath)
	if got := components.Service.Settings(); got != s {
		t.Errorf("invalid config must keep settings, got %+v", got)
	}
}

func TestReloader_RestartWarningOncePerChange(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Lexical: config.LexicalConfig{Backend: config.LexicalBleve, BleveIndexPath: filepath.Join(dir, "bleve")},
		Vector:  config.VectorConfig{Backend: config.VectorNone},
	}
	config.ApplyDefaults(cfg)
	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	core, logs := observer.New(zap.WarnLevel)
	r := &reloader{service: components.Service, indexer: components.Indexer, current: cfg, logger: zap.New(core)}
	configPath := filepath.Join(dir, "config.yaml")
	writeTestFile(t, configPath, `
lexical:
  backend: bleve
  bleve_index_path: ./bleve
vector:
  backend: none
search:
  fetch_limit: 20
  backend_timeout: 2s
`)
	r.onChange(configPath)
	r.onChange(configPath)

	warnings := logs.FilterMessage("settings changed that only apply after a restart").All()
	if len(warnings) != 1 {
		t.Fatalf("expected one restart warning, got %d", len(warnings))
	}
	changed := warnings[0].ContextMap()["changed"]
	want := []interface{}{"search.fetch_limit", "search.backend_timeout"}
	if !reflect.DeepEqual(changed, want) {
		t.Errorf("changed = %v, want %v", changed, want)
	}
	if r.current.Search.FetchLimit != 20 {
		t.Errorf("current config not updated: fetch_limit %d", r.current.Search.FetchLimit)
	}
}

func TestRestartOnlyChanges(t *testing.T) {
	base := &config.Config{}
	config.ApplyDefaults(base)
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{"nothing", func(*config.Config) {}, nil},
		{"alpha is hot", func(c *config.Config) { a := 0.1; c.Search.DefaultAlpha = &a }, nil},
		{"seed path is hot", func(c *config.Config) { c.Storage.SeedPath = "/x.jsonl" }, nil},
		{"port", func(c *config.Config) { c.Server.Port = 1 }, []string{"server"}},
		{"cors", func(c *config.Config) { c.Server.CORSOrigins = []string{"http://x"} }, []string{"server"}},
		{"meili url", func(c *config.Config) { c.Lexical.URL = "http://m" }, []string{"lexical"}},
		{"query log", func(c *config.Config) { c.Storage.QueryLogPath = "/q.db" }, []string{"storage.query_log_path"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := *base
			next.Server.CORSOrigins = slices.Clone(base.Server.CORSOrigins)
			tt.mutate(&next)
			if got := restartOnlyChanges(base, &next); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("restartOnlyChanges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReloader_SeedFileAndPathChanges(t *testing.T) {
	dir := t.TempDir()
	cfg := localConfig(dir)
	writeTestFile(t, cfg.Storage.SeedPath, testSeed)
	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()
	r := &reloader{service: components.Service, indexer: components.Indexer, current: cfg, logger: zap.NewNop()}

	writeTestFile(t, cfg.Storage.SeedPath, `{"id":"d3","title":"Kalman filters","content_text":"State estimation."}`+"\n")
	r.onChange(cfg.Storage.SeedPath)
	ids, _ := searchIDs(t, components, "kalman")
	if len(ids) != 1 || ids[0] != "d3" {
		t.Errorf("after seed edit got %v, want [d3]", ids)
	}

	otherSeed := filepath.Join(dir, "other.jsonl")
	writeTestFile(t, otherSeed, `{"id":"d4","title":"Raft consensus","content_text":"Leader election."}`+"\n")
	configPath := filepath.Join(dir, "config.yaml")
	writeTestFile(t, configPath, `
lexical:
  backend: bleve
  bleve_index_path: ./bleve
vector:
  backend: memory
embedding:
  backend: mock
  dimensions: 8
storage:
  query_log_path: ./queries.db
  seed_path: ./other.jsonl
`)
	r.onChange(configPath)
	if !samePath(r.current.Storage.SeedPath, otherSeed) {
		t.Fatalf("seed path not switched: %s", r.current.Storage.SeedPath)
	}
	ids, _ = searchIDs(t, components, "raft")
	if len(ids) != 1 || ids[0] != "d4" {
		t.Errorf("after seed path switch got %v, want [d4]", ids)
	}
}
