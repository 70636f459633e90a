package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/server"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"parse json", "-limit", "5"},
			expected: []string{"-limit", "5", "parse json"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "5", "parse json"},
			expected: []string{"-limit", "5", "parse json"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"parse json"},
			expected: []string{"parse json"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"lang:go", "retry", "-output", "json"},
			expected: []string{"-output", "json", "lang:go", "retry"},
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
		{"single word", []string{"tokenizer"}, "tokenizer"},
		{"multiple words", []string{"parse", "json"}, "parse json"},
		{"single quoted phrase", []string{"parse json"}, "parse json"},
		{"with filter", []string{"lang:go", "open", "file"}, "lang:go open file"},
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

func TestSplitExtensions(t *testing.T) {
	got := splitExtensions(" .go, rs ,,.py")
	want := []string{".go", "rs", ".py"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitExtensions() = %v, want %v", got, want)
	}
	if got := splitExtensions(""); got != nil {
		t.Errorf("splitExtensions(\"\") = %v, want nil", got)
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
storage:
  database_path: "./points.db"
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
vector:
  type: memory
  dimensions: 64
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
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Vector.Type != config.VectorTypeMemory || cfg.Vector.Dimensions != 64 {
		t.Errorf("unexpected vector config: %+v", cfg.Vector)
	}
}

func TestLoadConfig_envOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("vector:\n  type: none\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KENSAKU_VECTOR_TYPE", "qdrant")
	t.Setenv("KENSAKU_QDRANT_COLLECTION", "snippets")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vector.Type != config.VectorTypeQdrant || cfg.Vector.Qdrant.Collection != "snippets" {
		t.Errorf("env overrides not applied: %+v", cfg.Vector)
	}
}

func TestLoadConfig_invalid(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("search:\n  dedup_threshold: 1.5\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, _, err := loadConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "dedup_threshold") {
		t.Errorf("expected dedup_threshold error, got %v", err)
	}
	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Vector.Type = config.VectorTypeMemory
	cfg.Vector.Dimensions = 64
	cfg.Embedding.Provider = config.EmbeddingProviderHash
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "points.db")
	return cfg
}

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"json/parse.go": "package json\n\nfunc ParseJSON(data []byte) (Value, error) {\n\treturn decode(data)\n}\n",
		"db/conn.go":    "package db\n\nfunc OpenConnection(dsn string) (*sql.DB, error) {\n\treturn sql.Open(\"sqlite3\", dsn)\n}\n",
	}
	for rel, content := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIndexAndSearchInProcess(t *testing.T) {
	cfg := memoryConfig(t)
	ctx := context.Background()
	logger := zap.NewNop()

	inputs, err := collectInputs(ctx, writeRepo(t), indexer.Source{RepoName: "demo", RepoRef: "main"}, indexer.NewChunker(30, 5))
	if err != nil {
		t.Fatal(err)
	}
	n, err := indexInProcess(ctx, cfg, logger, inputs, indexer.WithBatchSize(1))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("indexed %d snippets, want 2", n)
	}

	// A fresh process sees the persisted points.
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()
	resp, err := components.Engine.Search(ctx, models.NewSemanticRequest("parse json", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Snippets) != 1 || resp.Snippets[0].RelativePath != "json/parse.go" {
		t.Errorf("unexpected result: %+v", resp.Snippets)
	}
	st, err := server.DescribeStatus(ctx, components.Engine, cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if st.Points != 2 || st.StorageBytes == 0 {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestInitializeComponents_notConfigured(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	components, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()
	if components.Engine.Configured() || components.Indexer != nil {
		t.Error("expected an unconfigured engine and no indexer")
	}
	_, err = components.Engine.Search(context.Background(), models.NewSemanticRequest("x", 1))
	if search.KindOf(err) != search.KindConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := indexInProcess(context.Background(), cfg, zap.NewNop(), []models.SnippetInput{{}}); err == nil {
		t.Error("expected indexing to fail without a vector index")
	}
}

func TestCollectInputs_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snippets.jsonl")
	line := `{"lang":"go","repo_name":"r","repo_ref":"main","relative_path":"a.go","snippet":"func A() {}","start_line":1,"end_line":1,"start_byte":0,"end_byte":11}`
	if err := os.WriteFile(path, []byte(line+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	inputs, err := collectInputs(context.Background(), path, indexer.Source{}, indexer.NewChunker(30, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 1 || inputs[0].RelativePath != "a.go" {
		t.Errorf("unexpected inputs: %+v", inputs)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *Components) {
	t.Helper()
	cfg := memoryConfig(t)
	components, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(components.Close)
	srv := server.NewServer(components.Engine, components.Indexer, cfg, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, components
}

func TestHTTPClientRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()

	inputs, err := collectInputs(ctx, writeRepo(t), indexer.Source{RepoName: "demo", RepoRef: "main"}, indexer.NewChunker(30, 0))
	if err != nil {
		t.Fatal(err)
	}
	n, err := indexViaHTTP(ctx, ts.URL, inputs, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(inputs) {
		t.Errorf("indexed %d, want %d", n, len(inputs))
	}

	resp, err := searchViaHTTP(ctx, ts.URL, models.NewSemanticRequest("open database connection", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Snippets) != 1 || resp.Snippets[0].RelativePath != "db/conn.go" {
		t.Errorf("unexpected result: %+v", resp.Snippets)
	}

	st, err := statusViaHTTP(ctx, ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if st.Points != int64(len(inputs)) || !st.Configured {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestSearchViaHTTP_serverError(t *testing.T) {
	ts, _ := newTestServer(t)
	_, err := searchViaHTTP(context.Background(), ts.URL, models.NewSemanticRequest("lang:go", 5))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400 (user): empty search") {
		t.Errorf("error should carry the server message: %v", err)
	}
}

func TestWatchAndIndex(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []models.SnippetInput
	sink := func(_ context.Context, inputs []models.SnippetInput) (int, error) {
		mu.Lock()
		got = append(got, inputs...)
		mu.Unlock()
		return len(inputs), nil
	}
	done := make(chan error, 1)
	go func() {
		done <- watchAndIndex(ctx, dir, indexer.Source{RepoName: "demo", RepoRef: "main"}, indexer.NewChunker(30, 0), sink, zap.NewNop())
	}()
	// give the watcher time to register the root
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "read.go"), []byte("package demo\n\nfunc ReadFile() {}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatal("expected the changed file to be indexed")
	}
	for _, in := range got {
		if in.RelativePath != "read.go" || in.RepoName != "demo" || in.Lang != "go" {
			t.Errorf("unexpected snippet: %+v", in)
		}
	}
}

func TestWatchAndIndex_rejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "snippets.jsonl")
	if err := os.WriteFile(f, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := watchAndIndex(context.Background(), f, indexer.Source{}, indexer.NewChunker(30, 0), nil, zap.NewNop()); err == nil {
		t.Error("expected error when watching a file")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Vector.Type != config.VectorTypeMemory {
		t.Errorf("vector type = %q, want memory", cfg.Vector.Type)
	}
	if cfg.Search.OverfetchMultiplier != 4 || cfg.Search.DedupThreshold != 0.95 {
		t.Errorf("search defaults not written: %+v", cfg.Search)
	}

	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected error when the file exists")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}
