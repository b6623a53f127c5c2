package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zenpipeline/archview/pkg/client"
)

func newTestMCP(t *testing.T, handler http.Handler) *Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewServer(client.New(ts.URL, client.StaticToken("tok")))
}

func TestMCPServer_ReadRules(t *testing.T) {
	ruleID := uuid.NewString()
	s := newTestMCP(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/architecture/rules" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"items":[{"id":"` + ruleID + `","name":"no-ui-to-db","severity":"error","enabled":true}],"total":1,"page":1,"page_size":50,"total_pages":1}`))
			return
		}
		http.NotFound(w, r)
	}))

	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: "archview://rules",
		},
	}

	result, err := s.handleReadRules(context.Background(), req)
	if err != nil {
		t.Fatalf("handleReadRules failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 resource content, got %d", len(result))
	}

	content, ok := result[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected TextResourceContents")
	}
	if content.MIMEType != "application/json" {
		t.Errorf("Expected application/json, got %s", content.MIMEType)
	}

	var rules []map[string]interface{}
	if err := json.Unmarshal([]byte(content.Text), &rules); err != nil {
		t.Fatalf("Failed to parse result JSON: %v", err)
	}
	if len(rules) != 1 || rules[0]["name"] != "no-ui-to-db" {
		t.Errorf("Unexpected rules payload: %v", rules)
	}
}

func TestMCPServer_GetGraph(t *testing.T) {
	repoID := uuid.New()
	s := newTestMCP(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/architecture/dependencies/"+repoID.String() {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"repository_id":"` + repoID.String() + `","nodes":[{"id":"auth","name":"auth","type":"module"}],"edges":[],"circular_dependencies":[]}`))
			return
		}
		http.NotFound(w, r)
	}))

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "get_dependency_graph",
			Arguments: map[string]interface{}{
				"repository_id": repoID.String(),
			},
		},
	}

	result, err := s.handleGetGraph(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGetGraph failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok || !strings.Contains(text.Text, `"auth"`) {
		t.Errorf("Expected graph JSON mentioning the auth node, got %v", result.Content[0])
	}
}

func TestMCPServer_GetGraphBadID(t *testing.T) {
	s := newTestMCP(t, http.NotFoundHandler())

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "get_dependency_graph",
			Arguments: map[string]interface{}{
				"repository_id": "not-a-uuid",
			},
		},
	}

	result, err := s.handleGetGraph(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGetGraph failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error for malformed repository id")
	}
}

func TestMCPServer_Validate(t *testing.T) {
	repoID := uuid.New()
	s := newTestMCP(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/architecture/validate" && r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"repository_id":"` + repoID.String() + `","passed":false,"results":[{"rule_id":"` + uuid.NewString() + `","rule_name":"no-cycles","passed":false,"violations":[]}]}`))
			return
		}
		http.NotFound(w, r)
	}))

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "validate_architecture",
			Arguments: map[string]interface{}{
				"repository_id": repoID.String(),
			},
		},
	}

	result, err := s.handleValidate(context.Background(), req)
	if err != nil {
		t.Fatalf("handleValidate failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content")
	}
	if !strings.Contains(text.Text, "FAILED") || !strings.Contains(text.Text, "no-cycles") {
		t.Errorf("Unexpected validate summary: %s", text.Text)
	}
}
