package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("dust_agent_query",
		mcp.WithDescription(fmt.Sprintf(
			"Ask the %s Dust agent a question and return its final answer.",
			s.cfg.AgentName,
		)),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question or request to send to the agent"),
		),
		mcp.WithBoolean("new_conversation",
			mcp.Description("Start a new conversation instead of continuing the current one"),
		),
	), s.handleAgentQuery)

	s.mcp.AddTool(mcp.NewTool("count_letters",
		mcp.WithDescription("Count how often a letter occurs in a text."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to search"),
		),
		mcp.WithString("letter",
			mcp.Required(),
			mcp.Description("A single letter to count"),
		),
	), s.handleCountLetters)
}

// handleAgentQuery is the outermost boundary for the conversation pipeline:
// every failure becomes a structured tool error, nothing propagates as a
// protocol fault.
func (s *Server) handleAgentQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newConversation := request.GetBool("new_conversation", false)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With("tool", "dust_agent_query", "request_id", shortID())
	log.Info("tool call", "new_conversation", newConversation, "query_chars", len(query))

	text, err := s.asker.Ask(ctx, &s.session, query, newConversation)
	if err != nil {
		log.Error("pipeline failed", "error", err)
		return mcp.NewToolResultError(errorPayload(err)), nil
	}

	log.Info("tool call done", "conversation_id", s.session.ConversationID, "response_chars", len(text))
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCountLetters(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	letter, err := request.RequireString("letter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if utf8.RuneCountInString(letter) != 1 {
		return mcp.NewToolResultError(fmt.Sprintf("letter must be a single character, got %q", letter)), nil
	}

	n := strings.Count(strings.ToLower(text), strings.ToLower(letter))
	return mcp.NewToolResultText(fmt.Sprintf("The letter %q appears %d time(s).", letter, n)), nil
}

// errorPayload renders a pipeline failure for the host. Stage errors already
// carry the stage tag in their message.
func errorPayload(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request canceled: " + err.Error()
	}
	return err.Error()
}

// shortID is a per-invocation correlation id for log lines.
func shortID() string {
	return uuid.NewString()[:8]
}
