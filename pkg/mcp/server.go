// Package mcp adapts the architecture backend to the Model Context
// Protocol so agents can inspect dependency graphs and run analyses over
// stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/client"
)

// Server exposes architecture views as MCP resources and tools.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance backed by the given SDK
// client.
func NewServer(apiClient *client.Client) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"archview",
			"1.0.0",
		),
		apiClient: apiClient,
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// archview://rules
	s.mcpServer.AddResource(mcp.NewResource(
		"archview://rules",
		"Architecture Rules",
		mcp.WithResourceDescription("All architecture rules with patterns and severities"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadRules)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"get_dependency_graph",
		mcp.WithDescription("Fetch the dependency graph for a repository: nodes, edges, and detected circular dependencies."),
		mcp.WithString("repository_id", mcp.Required(), mcp.Description("Repository UUID")),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool(
		"analyze_repository",
		mcp.WithDescription("Trigger a fresh architecture analysis and return the resulting graph. May take up to a minute."),
		mcp.WithString("repository_id", mcp.Required(), mcp.Description("Repository UUID")),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool(
		"get_compliance",
		mcp.WithDescription("Fetch the compliance score and trend for a repository."),
		mcp.WithString("repository_id", mcp.Required(), mcp.Description("Repository UUID")),
	), s.handleCompliance)

	s.mcpServer.AddTool(mcp.NewTool(
		"get_drift",
		mcp.WithDescription("Fetch the architecture drift report for a repository."),
		mcp.WithString("repository_id", mcp.Required(), mcp.Description("Repository UUID")),
	), s.handleDrift)

	s.mcpServer.AddTool(mcp.NewTool(
		"validate_architecture",
		mcp.WithDescription("Validate a repository against architecture rules. Returns pass/fail per rule with violations."),
		mcp.WithString("repository_id", mcp.Required(), mcp.Description("Repository UUID")),
		mcp.WithString("commit_sha", mcp.Description("Commit to validate (default: latest analyzed)")),
	), s.handleValidate)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"architecture-review",
		mcp.WithPromptDescription("Provides context for reviewing a repository's architecture health"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadRules(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	page, err := s.apiClient.ListRules(ctx, client.RuleFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}

	data, err := json.MarshalIndent(page.Items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := parseRepoID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	graph, err := s.apiClient.DependencyGraph(ctx, repoID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(graph)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := parseRepoID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	graph, err := s.apiClient.Analyze(ctx, repoID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	msg := fmt.Sprintf("Analysis complete: %d nodes, %d edges, %d circular dependency chains.",
		len(graph.Nodes), len(graph.Edges), len(graph.CircularDependencies))
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleCompliance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := parseRepoID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := s.apiClient.Compliance(ctx, repoID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(status)
}

func (s *Server) handleDrift(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := parseRepoID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.apiClient.Drift(ctx, repoID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := parseRepoID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.apiClient.Validate(ctx, api.ValidateRequest{
		RepositoryID: repoID,
		CommitSHA:    mcp.ParseString(request, "commit_sha", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	verdict := "PASSED"
	if !resp.Passed {
		verdict = "FAILED"
	}
	data, err := json.MarshalIndent(resp.Results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Validation %s\n%s", verdict, data)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "architecture-review" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are reviewing a repository's architecture through its dependency graph.

Concepts:
- Node: A module, package, or service. Each carries a health score from 0 to 100.
- Edge: A directed dependency (import, call, or data flow) between two nodes.
- Health buckets: 90 and above is healthy, 80 to 89 needs attention, below 80 is failing.
- Circular dependency: A chain of nodes that import each other. Always worth flagging.
- Rule: A constraint on which nodes may depend on which (e.g. 'ui must not import db').

Use 'get_dependency_graph' to inspect the current structure, 'analyze_repository' to refresh it,
and 'validate_architecture' to check it against the configured rules. When health scores are low
or circular dependencies exist, summarize the offending nodes and suggest where to cut the cycle.
`

	return mcp.NewGetPromptResult(
		"architecture-review",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

func parseRepoID(request mcp.CallToolRequest) (uuid.UUID, error) {
	raw := mcp.ParseString(request, "repository_id", "")
	repoID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid repository_id: %q", raw)
	}
	return repoID, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
