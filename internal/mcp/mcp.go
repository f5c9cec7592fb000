// Package mcp implements the Model Context Protocol server for Tasuki.
//
// The MCP server exposes the same task tools the chat assistant uses,
// allowing MCP-compatible AI agents to manage a user's tasks directly.
// Identity comes from the JWT the HTTP layer validated; handlers read it
// from the request context and never accept a user id as an argument.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tasuki-ai/tasuki/internal/agent"
	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
)

// TaskReader is the read surface resources are served from.
type TaskReader interface {
	ListTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, int, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]model.Notification, int, error)
}

// Server wraps the MCP server with Tasuki's tool executor.
type Server struct {
	mcpServer *mcpserver.MCPServer
	executor  *agent.Executor
	reader    TaskReader
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(executor *agent.Executor, reader TaskReader, logger *slog.Logger) *Server {
	s := &Server{
		executor: executor,
		reader:   reader,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"tasuki",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// session resolves the acting user from the request context. The second
// return is false when the context carries no authenticated identity.
func (s *Server) session(ctx context.Context) (agent.Session, bool) {
	userID := ctxutil.UserIDFromContext(ctx)
	if userID <= 0 {
		return agent.Session{}, false
	}
	return agent.Session{UserID: userID}, true
}

// call routes an MCP tool invocation through the shared executor.
func (s *Server) call(ctx context.Context, name string, args map[string]any) (*mcplib.CallToolResult, error) {
	sess, ok := s.session(ctx)
	if !ok {
		return errorResult("unauthenticated: no user identity in request context"), nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	res := s.executor.Execute(ctx, sess, name, raw)
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal tool result: %w", err)
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
		IsError: !res.Success,
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
