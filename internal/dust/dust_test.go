package dust

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ma3u/mcp-server-dust/internal/config"
)

func testConfig(domain string) *config.Config {
	cfg := config.Default()
	cfg.APIKey = "sk-test"
	cfg.WorkspaceID = "w1"
	cfg.AgentID = "agent_1"
	cfg.AgentName = "SystemsThinking"
	cfg.Domain = domain
	cfg.MaxPollAttempts = 3
	cfg.PollInterval = time.Millisecond
	return &cfg
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(testConfig(srv.URL), logger)
}

// platformStub scripts the platform endpoints for end-to-end runs and counts
// requests per path.
type platformStub struct {
	mux   *http.ServeMux
	calls atomic.Int64
}

func newPlatformStub() *platformStub {
	return &platformStub{mux: http.NewServeMux()}
}

func (p *platformStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.calls.Add(1)
	p.mux.ServeHTTP(w, r)
}

func (p *platformStub) handle(pattern string, body string) {
	p.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

func userMessageJSON(id string, created int64) string {
	return fmt.Sprintf(`{"sId":%q,"type":"user_message","author":{"type":"user"},"created":%d}`, id, created)
}

func agentMessageJSON(id string, created int64) string {
	return fmt.Sprintf(`{"sId":%q,"type":"agent_message","author":{"type":"assistant"},"created":%d}`, id, created)
}
