// Package mcpserver is the MCP-facing harness: it registers the tools and
// serves them over the configured transport.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/ma3u/mcp-server-dust/internal/config"
	"github.com/ma3u/mcp-server-dust/internal/dust"
)

// Asker runs the conversation pipeline for one query. *dust.Client is the
// production implementation.
type Asker interface {
	Ask(ctx context.Context, session *dust.Session, query string, newConversation bool) (string, error)
}

// Server wires the Dust pipeline into an MCP server.
type Server struct {
	cfg   *config.Config
	log   *slog.Logger
	mcp   *server.MCPServer
	asker Asker

	// One conversation, one in-flight tool call. The mutex serializes
	// invocations so concurrent hosts cannot interleave session updates.
	mu      sync.Mutex
	session dust.Session
}

// New builds the server and registers its tools.
func New(cfg *config.Config, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:   cfg,
		log:   logger.With("component", "mcp"),
		asker: dust.New(cfg, logger),
	}
	s.mcp = server.NewMCPServer(
		cfg.Name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// Run serves until ctx is canceled or the transport closes. For the network
// transports, cancellation triggers a graceful shutdown bounded by the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Transport {
	case config.TransportStdio:
		s.log.Info("starting MCP server", "name", s.cfg.Name, "transport", s.cfg.Transport)
		return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)

	case config.TransportHTTP:
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
		s.log.Info("starting MCP server", "name", s.cfg.Name, "transport", s.cfg.Transport, "addr", addr)
		httpSrv := server.NewStreamableHTTPServer(s.mcp)
		return s.serveNetwork(ctx,
			func() error { return httpSrv.Start(addr) },
			httpSrv.Shutdown,
		)

	case config.TransportSSE:
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
		s.log.Info("starting MCP server", "name", s.cfg.Name, "transport", s.cfg.Transport, "addr", addr)
		sseSrv := server.NewSSEServer(s.mcp)
		return s.serveNetwork(ctx,
			func() error { return sseSrv.Start(addr) },
			sseSrv.Shutdown,
		)

	default:
		return fmt.Errorf("unsupported transport: %q", s.cfg.Transport)
	}
}

func (s *Server) serveNetwork(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
