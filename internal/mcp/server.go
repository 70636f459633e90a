// Package mcp exposes snippet search as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/search"
	kserver "github.com/hyperjump/kensaku/internal/server"
)

// filterArgs maps tool arguments onto query filter keys.
var filterArgs = []struct {
	arg, key, desc string
}{
	{"repo", query.KeyRepo, "Only snippets from this repository"},
	{"lang", query.KeyLang, "Only snippets in this language, e.g. go or rust"},
	{"branch", query.KeyBranch, "Only snippets from this ref or branch"},
	{"path", query.KeyPath, "Only snippets whose path contains this text"},
}

// Server wraps the MCP server with the search tools.
type Server struct {
	mcpServer *server.MCPServer
	engine    *search.Engine
	config    *config.Config
	logger    *zap.Logger
}

// NewServer registers the semantic_search and index_status tools.
func NewServer(engine *search.Engine, cfg *config.Config, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
	s.mcpServer = server.NewMCPServer(
		"kensaku",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Find code snippets by meaning. Near-duplicate snippets (for example the same code on several branches) are returned once."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What the code does, in natural language or identifiers"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of snippets (default: server default)"),
		),
	}
	for _, f := range filterArgs {
		opts = append(opts, mcp.WithString(f.arg, mcp.Description(f.desc)))
	}
	s.mcpServer.AddTool(mcp.NewTool("semantic_search", opts...), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("index_status",
		mcp.WithDescription("Report whether the snippet index is configured and how many snippets it holds"),
	), s.handleStatus)
}

type searchResult struct {
	Location  string  `json:"location"`
	Lang      string  `json:"lang"`
	StartLine uint64  `json:"start_line"`
	EndLine   uint64  `json:"end_line"`
	Score     float32 `json:"score"`
	Text      string  `json:"text"`
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}
	raw, err := buildQuery(q, func(arg string) string { return request.GetString(arg, "") })
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := &models.SemanticRequest{Query: raw}
	if _, ok := request.GetArguments()["limit"]; ok {
		limit := request.GetInt("limit", 0)
		req.Limit = &limit
	}

	resp, err := s.engine.Search(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", search.KindOf(err), search.PublicMessage(err))), nil
	}

	results := make([]searchResult, len(resp.Snippets))
	for i, sn := range resp.Snippets {
		results[i] = searchResult{
			Location:  fmt.Sprintf("%s@%s:%s", sn.RepoName, sn.RepoRef, sn.RelativePath),
			Lang:      sn.Lang,
			StartLine: sn.StartLine,
			EndLine:   sn.EndLine,
			Score:     sn.Score,
			Text:      sn.Text,
		}
	}
	return jsonResult(results)
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := kserver.DescribeStatus(ctx, s.engine, s.config, s.logger)
	if err != nil {
		s.logger.Error("mcp status failed", zap.Error(err))
		return mcp.NewToolResultError(search.PublicMessage(err)), nil
	}
	return jsonResult(st)
}

// buildQuery appends the filter arguments to q in query syntax. Filter values
// cannot contain whitespace or quotes.
func buildQuery(q string, arg func(name string) string) (string, error) {
	parts := []string{strings.TrimSpace(q)}
	for _, f := range filterArgs {
		v := strings.TrimSpace(arg(f.arg))
		if v == "" {
			continue
		}
		if strings.ContainsAny(v, " \t\n\"") {
			return "", fmt.Errorf("%s must be a single word", f.arg)
		}
		parts = append(parts, f.key+":"+v)
	}
	return strings.Join(parts, " "), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
