// Package mcpserver exposes channel history to AI assistants over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rcliao/channel-memory/internal/logging"
	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/search"
	"github.com/rcliao/channel-memory/internal/service"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingBackend is returned when no backend is provided.
var ErrMissingBackend = errors.New("mcpserver: backend is required")

// Backend is the part of service.Service the tools call.
type Backend interface {
	SearchByKeywords(ctx context.Context, req search.Request) (*search.Response, error)
	RecentHistory(ctx context.Context, p service.HistoryParams) (*service.History, error)
	Periods(ctx context.Context, channelID string, limit int) ([]model.Period, error)
}

// Server is the channel-memory MCP server.
type Server struct {
	backend       Backend
	searchOptions search.Options
	logger        *slog.Logger
	server        *mcp.Server
}

// New creates a server with its tools registered. opts are the search
// settings a per-call max_output_lines is applied on top of.
func New(backend Backend, opts search.Options, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, ErrMissingBackend
	}
	impl := &mcp.Implementation{
		Name:    "channel-memory",
		Version: Version,
	}
	s := &Server{
		backend:       backend,
		searchOptions: opts,
		logger:        logging.OrDiscard(logger),
		server:        mcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			httpServer.Shutdown(context.Background()) //nolint:errcheck
		case <-done:
		}
	}()

	s.logger.Info("mcp server starting", "transport", "http", "addr", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
