package dust

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Message is one entry of a conversation as the platform reports it. Only
// the fields the locator needs are decoded.
type Message struct {
	SID     string `json:"sId"`
	Type    string `json:"type"`
	Author  Author `json:"author"`
	Created int64  `json:"created"`
	Rank    int    `json:"rank"`
	Content string `json:"content"`
}

// Author describes who wrote a message.
type Author struct {
	Type string `json:"type"`
}

// fromAgent reports whether the message was authored by the remote agent.
// Depending on platform version the role arrives either on the author or as
// the message type, so both are checked.
func (m Message) fromAgent() bool {
	return m.Author.Type == "assistant" || m.Type == "agent_message"
}

// conversationEnvelope covers the response shapes the platform is known to
// return for a conversation read: a flat list under "messages" (older
// versions), or the conversation resource with its content as an
// array-of-arrays of message versions.
type conversationEnvelope struct {
	Messages     []Message `json:"messages"`
	Conversation *struct {
		Content [][]Message `json:"content"`
	} `json:"conversation"`
}

// normalizeMessages turns either known response shape into a flat list,
// de-duplicated by id. For versioned entries the last occurrence of an id
// wins. Any other shape is a protocol mismatch and an error.
func normalizeMessages(raw json.RawMessage) ([]Message, error) {
	var env conversationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}

	var flat []Message
	switch {
	case env.Messages != nil:
		flat = env.Messages
	case env.Conversation != nil:
		for _, versions := range env.Conversation.Content {
			flat = append(flat, versions...)
		}
	default:
		return nil, fmt.Errorf("unexpected response format: %s", truncate(string(raw), 200))
	}

	byID := make(map[string]Message, len(flat))
	order := make([]string, 0, len(flat))
	for _, m := range flat {
		if m.SID == "" {
			continue
		}
		if _, seen := byID[m.SID]; !seen {
			order = append(order, m.SID)
		}
		byID[m.SID] = m
	}

	out := make([]Message, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// sortByArrival orders accumulated messages by creation timestamp, falling
// back to the sequence rank when timestamps are absent or tied.
func sortByArrival(byID map[string]Message) []Message {
	out := slices.SortedFunc(maps.Values(byID), func(a, b Message) int {
		if c := cmp.Compare(a.Created, b.Created); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.SID, b.SID)
	})
	return out
}
