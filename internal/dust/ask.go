package dust

import "context"

// Ask runs the full pipeline for one query and returns the agent's final
// text. The session's conversation is reused unless it is empty or the
// caller asks for a fresh one; the session is updated as stages succeed.
func (c *Client) Ask(ctx context.Context, session *Session, query string, newConversation bool) (string, error) {
	if newConversation || session.ConversationID == "" {
		conversationID, err := c.CreateConversation(ctx, query)
		if err != nil {
			return "", err
		}
		session.ConversationID = conversationID
	}

	userMessageID, err := c.SendMessage(ctx, session.ConversationID, query)
	if err != nil {
		return "", err
	}
	session.LastMessageID = userMessageID

	agentMessageID, err := c.AwaitAgentMessage(ctx, session.ConversationID, userMessageID)
	if err != nil {
		return "", err
	}

	return c.CollectResponse(ctx, session.ConversationID, agentMessageID)
}
