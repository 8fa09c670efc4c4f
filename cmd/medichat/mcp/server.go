package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/medichat/internal/core/models"
	"github.com/neilberkman/medichat/internal/core/search"
)

// Backend is the session API the tools call
type Backend interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context) (string, error)
	SessionMessages(ctx context.Context, sessionID string) ([]models.Message, error)
}

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Max sessions to return (default: 20)"`
}

// GetSessionMessagesArgs defines arguments for the get_session_messages tool
type GetSessionMessagesArgs struct {
	SessionID string `json:"session_id" jsonschema:"description=Session id to read,required"`
	Since     string `json:"since,omitempty" jsonschema:"description=Only messages after this time (e.g. yesterday or 2025-01-01)"`
	Query     string `json:"query,omitempty" jsonschema:"description=Text filter, supports role:user and role:assistant"`
}

// SessionSummary represents a session in the list
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
}

// MessageDetail represents a single message in a session
type MessageDetail struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
	HasImage  bool   `json:"has_image,omitempty"`
}

// NewServer registers the medichat tools on a new MCP server
func NewServer(backend Backend, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"MediChat",
		version,
	)

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List medichat conversations, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: 20)")),
	)
	s.AddTool(listTool, makeListSessionsHandler(backend))

	messagesTool := mcp.NewTool("get_session_messages",
		mcp.WithDescription("Retrieve the messages of a medichat conversation, optionally filtered by time or text"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to read")),
		mcp.WithString("since",
			mcp.Description("Only messages after this time, natural language or ISO date (e.g. 'yesterday', '2 hours ago', '2025-01-01')")),
		mcp.WithString("query",
			mcp.Description("Text that must appear in the message. Supports role:user, role:assistant, after: and before: tokens")),
	)
	s.AddTool(messagesTool, makeGetSessionMessagesHandler(backend, time.Now))

	createTool := mcp.NewTool("create_session",
		mcp.WithDescription("Start a new, empty medichat conversation and return its id"),
	)
	s.AddTool(createTool, makeCreateSessionHandler(backend))

	return s
}

// StartServer serves the tools over stdio until stdin closes
func StartServer(backend Backend, version string) error {
	return server.ServeStdio(NewServer(backend, version))
}

func decodeArgs(request mcp.CallToolRequest, v any) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func makeListSessionsHandler(backend Backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListSessionsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit <= 0 {
			limit = 20
		}

		sessions, err := backend.ListSessions(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
		}

		// Titles are numbered against the full list
		total := len(sessions)
		if len(sessions) > limit {
			sessions = sessions[:limit]
		}

		out := make([]SessionSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, SessionSummary{
				SessionID:    s.ID,
				Title:        s.Title(total),
				MessageCount: s.MessageCount,
			})
		}

		return jsonResult(map[string]any{
			"sessions": out,
			"total":    total,
		})
	}
}

func makeGetSessionMessagesHandler(backend Backend, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetSessionMessagesArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.SessionID == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		filters := search.ParseQuery(args.Query, now())
		if args.Since != "" {
			since, err := search.ParseSince(args.Since, now())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid since: %v", err)), nil
			}
			filters.AfterDate = since
			filters.HasAfter = true
		}

		msgs, err := backend.SessionMessages(ctx, args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
		}

		matched := filters.Apply(msgs)
		out := make([]MessageDetail, 0, len(matched))
		for _, m := range matched {
			detail := MessageDetail{
				Role:     string(m.Role),
				Content:  m.Content,
				HasImage: len(m.Image) > 0,
			}
			if !m.Timestamp.IsZero() {
				detail.Timestamp = m.Timestamp.Format(time.RFC3339)
			}
			out = append(out, detail)
		}

		return jsonResult(map[string]any{
			"session_id":     args.SessionID,
			"total_messages": len(msgs),
			"messages":       out,
		})
	}
}

func makeCreateSessionHandler(backend Backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := backend.CreateSession(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create session: %v", err)), nil
		}
		return jsonResult(map[string]string{"session_id": id})
	}
}
