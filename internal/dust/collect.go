package dust

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Event is one notification from an agent message's event stream.
type Event struct {
	Type         string `json:"type"`
	ContentBlock *struct {
		Content string `json:"content"`
	} `json:"contentBlock"`
}

// eventCompleted marks the end of generation. Older platform versions used
// other conventions; only the current one is recognized.
const eventCompleted = "generation-complete"

type eventsEnvelope struct {
	Events *[]Event `json:"events"`
}

// CollectResponse polls the event stream of an agent message until a
// completion marker is observed, then returns the content fragments joined
// with newlines.
//
// The platform returns the full accumulated event history on every poll, so
// each attempt evaluates the whole fetched list rather than a delta.
// Transport errors back off and retry within the same attempt budget as the
// locator; shape mismatches are fatal.
func (c *Client) CollectResponse(ctx context.Context, conversationID, agentMessageID string) (string, error) {
	req := request{
		method:  http.MethodGet,
		url:     c.eventsURL(conversationID, agentMessageID),
		headers: c.cfg.Headers(false),
	}

	attempts := c.cfg.MaxPollAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		c.log.Debug("polling for response", "attempt", attempt, "max_attempts", attempts)

		var resp eventsEnvelope
		err := c.doJSON(ctx, req, &resp)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", c.stageErr(StageCollectResponse, ctx.Err(), "Aborted while collecting response", req)
		case err != nil:
			c.log.Warn("event poll failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err,
			)
		case resp.Events == nil:
			return "", c.stageErr(StageCollectResponse, nil, "Unexpected response format: no events field", req)
		default:
			fragments, completed := foldEvents(*resp.Events)
			if completed {
				text := strings.Join(fragments, "\n")
				c.log.Info("received response",
					"agent_message_id", agentMessageID,
					"fragments", len(fragments),
					"preview", truncate(text, 100),
				)
				return text, nil
			}
		}

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return "", c.stageErr(StageCollectResponse, err, "Aborted while collecting response", req)
		}
	}

	reason := fmt.Sprintf("Timed out waiting for a response after %d attempts", attempts)
	c.log.Warn(reason, "agent_message_id", agentMessageID)
	c.log.Warn("last request attempted", "curl", req.curl())
	return "", &StageError{Stage: StageCollectResponse, Reason: reason}
}

// foldEvents walks the full event list in arrival order, collecting content
// fragments and watching for the completion marker.
func foldEvents(events []Event) (fragments []string, completed bool) {
	for _, ev := range events {
		if ev.ContentBlock != nil {
			fragments = append(fragments, ev.ContentBlock.Content)
		}
		if ev.Type == eventCompleted {
			completed = true
		}
	}
	return fragments, completed
}
