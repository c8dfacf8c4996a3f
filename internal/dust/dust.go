// Package dust is the client for the Dust.tt conversation API.
//
// A tool call walks four stages in order: create a conversation, post the
// user message, poll the conversation until the agent's reply shows up, then
// poll that reply's event stream until generation completes. Each stage
// feeds its identifier to the next; Ask runs the whole pipeline.
package dust

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ma3u/mcp-server-dust/internal/config"
)

// Session holds the conversation state carried across tool calls.
//
// It is owned by the caller and passed into Ask explicitly. A Session is not
// safe for concurrent use; the serving layer serializes tool invocations.
type Session struct {
	ConversationID string
	LastMessageID  string
}

// Client talks to the Dust platform on behalf of one configured agent.
type Client struct {
	cfg  *config.Config
	http *http.Client
	log  *slog.Logger
}

// New creates a platform client. The config must already be validated.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: newHTTPClient(),
		log:  logger.With("component", "dust"),
	}
}

// newHTTPClient builds the outbound client with explicit connection-level
// timeouts. The overall request timeout covers a single poll attempt, never
// a whole polling loop.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   5,
			ForceAttemptHTTP2:     true,
		},
	}
}

func (c *Client) conversationsURL() string {
	return c.cfg.Domain + "/api/v1/w/" + c.cfg.WorkspaceID + "/assistant/conversations"
}

func (c *Client) conversationURL(conversationID string) string {
	return c.conversationsURL() + "/" + conversationID
}

func (c *Client) messagesURL(conversationID string) string {
	return c.conversationURL(conversationID) + "/messages"
}

func (c *Client) eventsURL(conversationID, messageID string) string {
	return c.messagesURL(conversationID) + "/" + messageID + "/events"
}
