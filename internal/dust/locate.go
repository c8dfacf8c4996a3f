package dust

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// backoffCap bounds the locator's growing per-attempt delay, in poll
// interval units.
const backoffCap = 10

// AwaitAgentMessage polls the conversation until an agent-authored message
// appears strictly after userMessageID, and returns that message's id.
//
// Messages seen across attempts accumulate by id, so an entry observed in an
// earlier poll survives a later poll that returns a smaller page. Transport
// and HTTP errors are logged and consume an attempt rather than failing the
// operation; a malformed response shape is fatal immediately. Exhausting the
// attempt budget yields a timeout StageError.
func (c *Client) AwaitAgentMessage(ctx context.Context, conversationID, userMessageID string) (string, error) {
	req := request{
		method:  http.MethodGet,
		url:     c.conversationURL(conversationID),
		headers: c.cfg.Headers(false),
	}

	c.log.Info("waiting for agent reply",
		"conversation_id", conversationID,
		"user_message_id", userMessageID,
	)

	seen := map[string]Message{}
	attempts := c.cfg.MaxPollAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		var raw json.RawMessage
		err := c.doJSON(ctx, req, &raw)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", c.stageErr(StageAwaitAgentMessage, ctx.Err(), "Aborted while waiting for agent reply", req)
		case err != nil:
			c.log.Warn("conversation poll failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err,
			)
		default:
			msgs, nerr := normalizeMessages(raw)
			if nerr != nil {
				return "", c.stageErr(StageAwaitAgentMessage, nerr, "Unexpected response format", req)
			}
			for _, m := range msgs {
				seen[m.SID] = m
			}
			if id, ok := agentReplyAfter(sortByArrival(seen), userMessageID); ok {
				c.log.Info("found agent reply", "agent_message_id", id, "attempt", attempt)
				return id, nil
			}
			c.log.Debug("no agent reply yet", "attempt", attempt, "messages_seen", len(seen))
		}

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, c.locateBackoff(attempt)); err != nil {
			return "", c.stageErr(StageAwaitAgentMessage, err, "Aborted while waiting for agent reply", req)
		}
	}

	reason := fmt.Sprintf("No agent message found after %d attempts", attempts)
	c.log.Warn(reason, "conversation_id", conversationID)
	c.log.Warn("last request attempted", "curl", req.curl())
	return "", &StageError{Stage: StageAwaitAgentMessage, Reason: reason}
}

// agentReplyAfter scans the ordered messages for the first agent-authored
// entry following userMessageID. It never yields userMessageID itself.
func agentReplyAfter(ordered []Message, userMessageID string) (string, bool) {
	found := false
	for _, m := range ordered {
		if m.SID == userMessageID {
			found = true
			continue
		}
		if found && m.fromAgent() {
			return m.SID, true
		}
	}
	return "", false
}

// locateBackoff grows linearly with the attempt number, capped at
// backoffCap poll units.
func (c *Client) locateBackoff(attempt int) time.Duration {
	units := min(2*attempt, backoffCap)
	return time.Duration(units) * c.cfg.PollInterval
}

// sleep waits for d or until ctx is done, whichever comes first.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
