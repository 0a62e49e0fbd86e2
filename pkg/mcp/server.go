// Package mcp exposes schema ingestion and header extraction as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/heefoo/apiloom/internal/config"
	"github.com/heefoo/apiloom/internal/pipeline"
)

type Server struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	mcp     *server.MCPServer
}

type ServerConfig struct {
	// Config supplies grammar, exclusion and normalization defaults. Its
	// input section is ignored; each tool call names its own inputs.
	Config  *config.Config
	Logger  *slog.Logger
	Version string
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		config:  cfg.Config,
		logger:  cfg.Logger,
		version: cfg.Version,
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.version == "" {
		s.version = "dev"
	}

	mcpServer := server.NewMCPServer(
		"apiloom",
		s.version,
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcp = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("ingest_api_map",
		mcp.WithDescription("Normalize a JSON API description into enums, functions, structs and unions with C-style type strings. Returns the JSON report including the typedef table and any skipped entities."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the JSON API description"),
		),
	), s.handleIngestAPIMap)

	mcpServer.AddTool(mcp.NewTool("extract_declarations",
		mcp.WithDescription("Extract function prototypes from C headers. Returns the JSON report with header_functions in file order and any skipped declarations."),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("Comma-separated header files or directories"),
		),
	), s.handleExtractDeclarations)
}

func (s *Server) handleIngestAPIMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return errorResult(err.Error())
	}

	cfg := s.requestConfig()
	cfg.Input.APIMap = path
	return s.run(ctx, cfg)
}

func (s *Server) handleExtractDeclarations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("paths")
	if err != nil {
		return errorResult(err.Error())
	}

	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return errorResult("paths must name at least one header or directory")
	}

	cfg := s.requestConfig()
	cfg.Input.Headers = paths
	return s.run(ctx, cfg)
}

// requestConfig copies the server config with the input section cleared.
func (s *Server) requestConfig() *config.Config {
	cfg := *s.config
	cfg.Input.APIMap = ""
	cfg.Input.Headers = nil
	return &cfg
}

func (s *Server) run(ctx context.Context, cfg *config.Config) (*mcp.CallToolResult, error) {
	r, err := pipeline.Run(ctx, cfg, s.logger)
	if err != nil {
		return errorResult(err.Error())
	}

	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal report: %v", err))
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// errorResult reports a tool failure as a JSON payload with IsError set.
func errorResult(message string) (*mcp.CallToolResult, error) {
	payload := map[string]interface{}{
		"error":   true,
		"message": message,
	}
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error result: %w", err)
	}
	return mcp.NewToolResultError(string(jsonBytes)), nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) ServeHTTP(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("starting MCP server", slog.String("url", "http://localhost"+addr))

	// SSEServer handles both /sse (GET) and /message (POST)
	sseHandler := server.NewSSEServer(s.mcp,
		server.WithBaseURL(fmt.Sprintf("http://127.0.0.1:%d", port)),
	)

	mux := http.NewServeMux()
	mux.Handle("/", sseHandler)
	mux.HandleFunc("/health", s.handleHealth)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
