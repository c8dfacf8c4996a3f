package dust

import (
	"context"
	"net/http"
)

type createConversationRequest struct {
	Title                string `json:"title"`
	AgentConfigurationID string `json:"agent_configuration_id"`
}

type createConversationResponse struct {
	Conversation struct {
		SID string `json:"sId"`
	} `json:"conversation"`
}

type modelSettings struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

type mentionContext struct {
	Timezone      string        `json:"timezone"`
	ModelSettings modelSettings `json:"modelSettings"`
}

type mention struct {
	ConfigurationID string         `json:"configurationId"`
	Context         mentionContext `json:"context"`
}

type messageContext struct {
	Timezone string `json:"timezone"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type postMessageRequest struct {
	Content  string         `json:"content"`
	Mentions []mention      `json:"mentions"`
	Context  messageContext `json:"context"`
}

type postMessageResponse struct {
	Message struct {
		SID string `json:"sId"`
	} `json:"message"`
}

// CreateConversation creates a remote conversation addressed to the
// configured agent and returns its identifier.
//
// The platform does not guarantee idempotency here, so there is no retry:
// repeating the request would create duplicate conversations.
func (c *Client) CreateConversation(ctx context.Context, query string) (string, error) {
	req := request{
		method:  http.MethodPost,
		url:     c.conversationsURL(),
		headers: c.cfg.Headers(true),
		payload: createConversationRequest{
			Title:                c.cfg.AgentName + " Query: " + truncate(query, 30) + "...",
			AgentConfigurationID: c.cfg.AgentID,
		},
	}

	c.log.Info("creating conversation", "url", req.url)

	var resp createConversationResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return "", c.stageErr(StageCreateConversation, err, "Failed to create conversation", req)
	}
	if resp.Conversation.SID == "" {
		return "", c.stageErr(StageCreateConversation, nil, "No conversation id in response", req)
	}

	c.log.Info("created conversation", "conversation_id", resp.Conversation.SID)
	return resp.Conversation.SID, nil
}

// SendMessage posts the user's message into the conversation and returns the
// created message's identifier. Like CreateConversation it never retries: a
// duplicate send shows up as a duplicate visible message.
func (c *Client) SendMessage(ctx context.Context, conversationID, query string) (string, error) {
	req := request{
		method:  http.MethodPost,
		url:     c.messagesURL(conversationID),
		headers: c.cfg.Headers(true),
		payload: postMessageRequest{
			Content: query,
			Mentions: []mention{{
				ConfigurationID: c.cfg.AgentID,
				Context: mentionContext{
					Timezone:      c.cfg.Timezone,
					ModelSettings: modelSettings{Provider: "anthropic"},
				},
			}},
			Context: messageContext{
				Timezone: c.cfg.Timezone,
				Username: c.cfg.Username,
				FullName: c.cfg.Fullname,
			},
		},
	}

	c.log.Info("sending message", "conversation_id", conversationID)

	var resp postMessageResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return "", c.stageErr(StageSendMessage, err, "Failed to send message", req)
	}
	if resp.Message.SID == "" {
		return "", c.stageErr(StageSendMessage, nil, "No message id in response", req)
	}

	c.log.Info("sent message", "message_id", resp.Message.SID)
	return resp.Message.SID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
