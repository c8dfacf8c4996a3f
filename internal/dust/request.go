package dust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Pipeline stage tags. Every failure leaving this package names the stage
// it happened in.
const (
	StageCreateConversation = "create_conversation"
	StageSendMessage        = "send_message"
	StageAwaitAgentMessage  = "await_agent_message"
	StageCollectResponse    = "collect_response"
)

// StageError is the uniform failure record for a pipeline stage.
type StageError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// request describes an attempted platform call. It exists so failures can be
// reported with a reproducible rendering of exactly what was sent.
type request struct {
	method  string
	url     string
	headers map[string]string
	payload any
}

// curl renders the request as a curl command line for diagnostic logging.
// It is never executed.
func (r request) curl() string {
	var sb strings.Builder
	sb.WriteString("curl -X " + r.method)
	keys := slices.Sorted(maps.Keys(r.headers))
	for _, k := range keys {
		fmt.Fprintf(&sb, " -H %q", k+": "+r.headers[k])
	}
	if r.payload != nil {
		body, err := json.Marshal(r.payload)
		if err == nil {
			fmt.Fprintf(&sb, " -d '%s'", body)
		}
	}
	sb.WriteString(" " + r.url)
	return sb.String()
}

// statusError is a non-2xx platform response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// doJSON executes req and decodes the response body into out. A transport
// failure or non-2xx status comes back as a plain error for the caller to
// classify; out is only touched on success.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.payload != nil {
		raw, err := json.Marshal(req.payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, body: readErrorBody(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readErrorBody captures a bounded prefix of an error response for logs.
func readErrorBody(rc io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(rc, 2048))
	if err != nil {
		return fmt.Sprintf("(failed to read error body: %v)", err)
	}
	return strings.TrimSpace(string(raw))
}

// stageErr logs the failure with its reproducible request rendering and
// returns the uniform failure record.
func (c *Client) stageErr(stage string, err error, reason string, req request) error {
	c.log.Error(reason, "stage", stage, "error", err)
	c.log.Error("failed request", "stage", stage, "curl", req.curl())
	return &StageError{Stage: stage, Reason: reason, Err: err}
}
