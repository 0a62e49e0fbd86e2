package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/heefoo/apiloom/internal/config"
	"github.com/heefoo/apiloom/internal/report"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected a result with content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func decodeReport(t *testing.T, result *mcp.CallToolResult) *report.Report {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	var r report.Report
	if err := json.Unmarshal([]byte(resultText(t, result)), &r); err != nil {
		t.Fatalf("result is not a report: %v", err)
	}
	return &r
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestErrorResult(t *testing.T) {
	result, err := errorResult(`bad "path"`)
	if err != nil {
		t.Fatalf("errorResult should not return error, got: %v", err)
	}
	if !result.IsError {
		t.Error("errorResult should return result with IsError=true")
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, result)), &parsed); err != nil {
		t.Fatalf("result text should be valid JSON, got error: %v", err)
	}
	if parsed["error"] != true {
		t.Error("parsed JSON should have error=true")
	}
	if parsed["message"] != `bad "path"` {
		t.Errorf("unexpected message: %v", parsed["message"])
	}
}

func TestIngestAPIMapTool(t *testing.T) {
	path := writeFile(t, t.TempDir(), "api.json", `{
  "functions": [{
    "name": "lv_obj_clean",
    "json_type": "function",
    "type": {"json_type": "ret_type", "type": {"name": "void", "json_type": "primitive_type"}},
    "args": [{"name": "obj", "json_type": "arg", "type": {"json_type": "pointer", "type": {"name": "lv_obj_t", "json_type": "lvgl_type"}}}]
  }],
  "typedefs": [
    {"name": "lv_obj_t", "json_type": "typedef", "type": {"name": "_lv_obj_t", "json_type": "lvgl_type"}}
  ]
}`)

	s := NewServer(ServerConfig{})
	result, err := s.handleIngestAPIMap(context.Background(), callTool("ingest_api_map", map[string]interface{}{"path": path}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	r := decodeReport(t, result)
	if r.APIMap == nil || len(r.APIMap.Functions) != 1 {
		t.Fatalf("expected one function, got %+v", r.APIMap)
	}
	fn := r.APIMap.Functions[0]
	if fn.ReturnType != "void" || fn.Args[0].Type != "lv_obj_t*" {
		t.Errorf("unexpected function: %+v", fn)
	}
	if r.Typedefs == nil || r.Typedefs.Named["_lv_obj_t"] != "lv_obj_t" {
		t.Errorf("expected named typedef _lv_obj_t -> lv_obj_t, got %+v", r.Typedefs)
	}
}

func TestExtractDeclarationsTool(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.h", "int add(int x, int y);\n")
	b := writeFile(t, dir, "b.h", "void lv_init(void);\n")

	s := NewServer(ServerConfig{Config: config.DefaultConfig()})
	result, err := s.handleExtractDeclarations(context.Background(),
		callTool("extract_declarations", map[string]interface{}{"paths": a + " , " + b}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	r := decodeReport(t, result)
	if len(r.HeaderFunctions) != 2 {
		t.Fatalf("expected two functions, got %+v", r.HeaderFunctions)
	}
	if r.HeaderFunctions[0].Identifier != "add" || r.HeaderFunctions[1].Identifier != "lv_init" {
		t.Errorf("unexpected order: %+v", r.HeaderFunctions)
	}
	if r.APIMap != nil {
		t.Error("header-only call should not produce an api map")
	}
}

func TestToolErrors(t *testing.T) {
	s := NewServer(ServerConfig{})

	tests := []struct {
		name   string
		call   func() (*mcp.CallToolResult, error)
		expect string
	}{
		{"missing path", func() (*mcp.CallToolResult, error) {
			return s.handleIngestAPIMap(context.Background(), callTool("ingest_api_map", nil))
		}, "path"},
		{"unreadable document", func() (*mcp.CallToolResult, error) {
			return s.handleIngestAPIMap(context.Background(),
				callTool("ingest_api_map", map[string]interface{}{"path": filepath.Join(t.TempDir(), "nope.json")}))
		}, "nope.json"},
		{"empty paths", func() (*mcp.CallToolResult, error) {
			return s.handleExtractDeclarations(context.Background(),
				callTool("extract_declarations", map[string]interface{}{"paths": " , "}))
		}, "at least one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.call()
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected a tool error")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.expect) {
				t.Errorf("expected error mentioning %q, got %s", tt.expect, text)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	s := NewServer(ServerConfig{})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health status 200, got %d", rec.Code)
	}
}

func TestSSEEndpoint(t *testing.T) {
	s := NewServer(ServerConfig{})

	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux}
	sseHandler := server.NewSSEServer(s.mcp,
		server.WithBaseURL("http://127.0.0.1"),
		server.WithUseFullURLForMessageEndpoint(true),
		server.WithHTTPServer(srv),
	)
	mux.Handle("/sse", sseHandler.SSEHandler())
	mux.Handle("/message", sseHandler.MessageHandler())

	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ts.URL + "/sse")
	if err != nil {
		t.Fatalf("failed to call /sse: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /sse status 200, got %d", resp.StatusCode)
	}

	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("failed to read /sse response: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "event: endpoint") {
		t.Fatalf("expected /sse response to include endpoint event, got: %q", string(buf[:n]))
	}
}
