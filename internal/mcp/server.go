// Package mcp exposes the review bot's data and trigger surface as MCP tools
// so agent clients can inspect reviews and kick off manual runs.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/revbot/internal/router"
	"github.com/joescharf/revbot/internal/store"
)

// Server wraps the review bot's store and router as MCP tools.
type Server struct {
	store  store.Store
	router *router.Router
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, r *router.Router) *Server {
	return &Server{store: s, router: r}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revbot", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.getRecordTool())
	srv.AddTool(s.listRecordsTool())
	srv.AddTool(s.triggerReviewTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// revbot_get_record
func (s *Server) getRecordTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revbot_get_record",
		mcp.WithDescription("Get the stored review record for a pull request by its canonical PR URL. Returns all persisted columns as JSON, including ai_risk_level, ai_review, and post check score."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Canonical PR html_url")),
	)
	return tool, s.handleGetRecord
}

func (s *Server) handleGetRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: url"), nil
	}

	rec, err := s.store.GetRecord(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get record: %v", err)), nil
	}
	if rec == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no record for %s", url)), nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal record: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revbot_list_records
func (s *Server) listRecordsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revbot_list_records",
		mcp.WithDescription("List the most recently reviewed pull requests, newest first. Returns a JSON array of records."),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 20)")),
	)
	return tool, s.handleListRecords
}

func (s *Server) handleListRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)

	records, err := s.store.ListRecords(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list records: %v", err)), nil
	}
	if records == nil {
		records = []store.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal records: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revbot_trigger_review
func (s *Server) triggerReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revbot_trigger_review",
		mcp.WithDescription("Run the AI review pipeline on a pull request as if a pull_request opened delivery had arrived. Posts or replaces the bot's review comment on the PR."),
		mcp.WithString("repo_api_url", mcp.Required(), mcp.Description("Repository API URL, e.g. https://ghe.example.com/api/v3/repos/acme/widget")),
		mcp.WithString("repo_html_url", mcp.Required(), mcp.Description("Repository browser URL, e.g. https://ghe.example.com/acme/widget")),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner login")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Pull request number")),
	)
	return tool, s.handleTriggerReview
}

func (s *Server) handleTriggerReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiURL, err := request.RequireString("repo_api_url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo_api_url"), nil
	}
	htmlURL, err := request.RequireString("repo_html_url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo_html_url"), nil
	}
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: owner"), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	number, err := request.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: number"), nil
	}

	if err := s.router.Trigger(ctx, apiURL, htmlURL, owner, repo, number); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trigger failed: %v", err)), nil
	}

	result := map[string]any{
		"status": "triggered",
		"pr":     fmt.Sprintf("%s/pull/%d", htmlURL, number),
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}
