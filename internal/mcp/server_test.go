package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/vector"
)

const testDims = 64

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Vector.Type = config.VectorTypeMemory
	cfg.Vector.Dimensions = testDims
	return cfg
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	index, err := vector.NewMemoryIndex(testDims, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewHashEmbedder(testDims)
	seed := []models.SnippetInput{
		{Lang: "go", RepoName: "kensaku", RepoRef: "main", RelativePath: "json/parse.go", Text: "func ParseJSON(data []byte) (Value, error)", StartLine: 1, EndLine: 3, EndByte: 44},
		{Lang: "go", RepoName: "kensaku", RepoRef: "v1", RelativePath: "json/parse.go", Text: "func ParseJSON(data []byte) (Value, error)", StartLine: 1, EndLine: 3, EndByte: 44},
		{Lang: "rust", RepoName: "other", RepoRef: "dev", RelativePath: "src/json.rs", Text: "fn parse_json(data: &[u8]) -> Value", StartLine: 1, EndLine: 2, EndByte: 36},
	}
	if _, err := indexer.NewIndexer(index, embedder).IndexSnippets(context.Background(), seed); err != nil {
		t.Fatal(err)
	}
	engine := search.NewEngine(search.NewBackend(index, embedder), search.OptionsFromConfig(cfg))
	return NewServer(engine, cfg, "test", nil)
}

// sendMessage sends a JSON-RPC request through HandleMessage and returns the response.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	result := srv.MCPServer().HandleMessage(context.Background(), raw)
	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

func initialize(t *testing.T, srv *Server) {
	t.Helper()
	sendMessage(t, srv, "initialize", 1, map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test-client", "version": "0.0.1"},
	})
}

// callTool invokes a tool and returns its text content and error flag.
func callTool(t *testing.T, srv *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{"name": name, "arguments": args})
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("%s: empty content", name)
	}
	return result.Content[0].Text, result.IsError
}

func TestServer_ListTools(t *testing.T) {
	srv := testServer(t)
	initialize(t, srv)
	resp := sendMessage(t, srv, "tools/list", 2, nil)

	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatal(err)
	}
	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}
	searchTool, ok := tools["semantic_search"]
	if !ok {
		t.Fatal("missing semantic_search tool")
	}
	if _, ok := tools["index_status"]; !ok {
		t.Error("missing index_status tool")
	}
	for _, param := range []string{"query", "limit", "repo", "lang", "branch", "path"} {
		if _, ok := searchTool.InputSchema.Properties[param]; !ok {
			t.Errorf("semantic_search missing %s parameter", param)
		}
	}
	if len(searchTool.InputSchema.Required) != 1 || searchTool.InputSchema.Required[0] != "query" {
		t.Errorf("required = %v, want [query]", searchTool.InputSchema.Required)
	}
}

func TestServer_SemanticSearch(t *testing.T) {
	srv := testServer(t)
	initialize(t, srv)

	text, isErr := callTool(t, srv, "semantic_search", map[string]any{"query": "parse json", "limit": 5})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var results []searchResult
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		t.Fatal(err)
	}
	goHits := 0
	for _, r := range results {
		if strings.HasSuffix(r.Location, ":json/parse.go") {
			goHits++
		}
	}
	if goHits != 1 {
		t.Errorf("identical snippets on two refs returned %d times, want 1: %+v", goHits, results)
	}
}

func TestServer_SemanticSearchFilters(t *testing.T) {
	srv := testServer(t)
	initialize(t, srv)

	text, isErr := callTool(t, srv, "semantic_search", map[string]any{"query": "parse json", "lang": "Rust"})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var results []searchResult
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Lang != "rust" {
		t.Errorf("lang filter: got %+v", results)
	}
}

func TestServer_SemanticSearchErrors(t *testing.T) {
	srv := testServer(t)
	initialize(t, srv)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing query", map[string]any{}, "query is required"},
		{"filters only", map[string]any{"query": "repo:kensaku"}, "user: empty search"},
		{"spaced filter", map[string]any{"query": "parse", "path": "a b"}, "path must be a single word"},
		{"negative limit", map[string]any{"query": "parse", "limit": -3}, "user: invalid limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, srv, "semantic_search", tt.args)
			if !isErr {
				t.Fatalf("expected tool error, got %s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error %q does not contain %q", text, tt.want)
			}
		})
	}
}

func TestServer_NotConfigured(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	srv := NewServer(search.NewEngine(nil, search.OptionsFromConfig(cfg)), cfg, "test", nil)
	initialize(t, srv)

	text, isErr := callTool(t, srv, "semantic_search", map[string]any{"query": "parse json"})
	if !isErr || !strings.Contains(text, "configuration") {
		t.Errorf("got %q (isError %v), want configuration error", text, isErr)
	}
	text, isErr = callTool(t, srv, "index_status", nil)
	if isErr {
		t.Fatalf("status: %s", text)
	}
	var st models.IndexStatus
	if err := json.Unmarshal([]byte(text), &st); err != nil {
		t.Fatal(err)
	}
	if st.Configured {
		t.Error("expected configured=false")
	}
}

func TestServer_IndexStatus(t *testing.T) {
	srv := testServer(t)
	initialize(t, srv)

	text, isErr := callTool(t, srv, "index_status", map[string]any{})
	if isErr {
		t.Fatalf("status: %s", text)
	}
	var st models.IndexStatus
	if err := json.Unmarshal([]byte(text), &st); err != nil {
		t.Fatal(err)
	}
	if !st.Configured || st.Points != 3 || st.Dimensions != testDims {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestBuildQuery(t *testing.T) {
	args := map[string]string{"repo": "kensaku", "lang": "go", "branch": "", "path": "internal/"}
	got, err := buildQuery("  read file ", func(name string) string { return args[name] })
	if err != nil {
		t.Fatal(err)
	}
	if want := "read file repo:kensaku lang:go path:internal/"; got != want {
		t.Errorf("buildQuery = %q, want %q", got, want)
	}
	if _, err := buildQuery("x", func(string) string { return `a"b` }); err == nil {
		t.Error("expected error for quoted filter value")
	}
}
