package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/louisbranch/pixelfield/internal/platform/branding"
	"github.com/louisbranch/pixelfield/internal/platform/timeouts"
	"github.com/louisbranch/pixelfield/internal/services/canvas/api/client"
	"github.com/louisbranch/pixelfield/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverVersion identifies the MCP server version.
const serverVersion = "0.1.0"

// serverName identifies this MCP server to clients.
var serverName = branding.AppName + " MCP"

// defaultCanvasURL is where a local canvas service listens.
const defaultCanvasURL = "http://localhost:8080"

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over streamable HTTP for remote clients.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP bridge.
type Config struct {
	// CanvasURL is the canvas REST API root. Falls back to
	// PIXELFIELD_CANVAS_URL, then to the local default.
	CanvasURL string
	// Grant is a painter grant forwarded as the bearer token on every
	// canvas call.
	Grant string
	// Actor is the development-mode painter identity, used when no grant
	// is configured.
	Actor     string
	Transport TransportKind
	// HTTPAddr is the bind address for the HTTP transport. Defaults to
	// localhost:8081.
	HTTPAddr string
}

// Server hosts the MCP bridge.
type Server struct {
	mcpServer *mcp.Server
}

var _ domain.CanvasAPI = (*client.Client)(nil)

// New creates a configured MCP server whose tools call the canvas REST API.
func New(cfg Config) (*Server, error) {
	canvasURL := canvasAddress(cfg.CanvasURL)
	api, err := client.New(client.Config{
		BaseURL: canvasURL,
		Grant:   cfg.Grant,
		Actor:   cfg.Actor,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to canvas at %s: %w", canvasURL, err)
	}
	return newServer(api), nil
}

// newServer binds tool handlers to the given canvas API once.
func newServer(api domain.CanvasAPI) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerCanvasTools(mcpServer, api)
	return &Server{mcpServer: mcpServer}
}

func registerCanvasTools(server *mcp.Server, api domain.CanvasAPI) {
	mcp.AddTool(server, domain.OverviewTool(), domain.OverviewHandler(api))
	mcp.AddTool(server, domain.RegionTool(), domain.RegionHandler(api))
	mcp.AddTool(server, domain.CellPlaceTool(), domain.CellPlaceHandler(api))
	mcp.AddTool(server, domain.ContentHashTool(), domain.ContentHashHandler(api))
	mcp.AddTool(server, domain.CooldownStatusTool(), domain.CooldownStatusHandler(api))
	mcp.AddTool(server, domain.SnapshotCreateTool(), domain.SnapshotCreateHandler(api))
	mcp.AddTool(server, domain.SnapshotListTool(), domain.SnapshotListHandler(api))
	mcp.AddTool(server, domain.SnapshotGetTool(), domain.SnapshotGetHandler(api))
	mcp.AddTool(server, domain.CollectibleMintTool(), domain.CollectibleMintHandler(api))
}

// Run is the service entrypoint for MCP and blocks until context
// cancellation. Startup chooses stdio for local tools and HTTP for remote
// integrations.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		server, err := New(cfg)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	case TransportHTTP:
		return runHTTP(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// runHTTP serves MCP over the SDK's streamable HTTP transport with the
// usual graceful shutdown on context cancellation.
func runHTTP(ctx context.Context, cfg Config) error {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		httpAddr = "localhost:8081"
	}

	server, err := New(cfg)
	if err != nil {
		return err
	}
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	log.Printf("mcp server listening on %s", httpAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mcp server: %w", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve mcp: %w", err)
	}
}

// canvasAddress resolves the canvas URL from the explicit value, the
// environment, or the local default.
func canvasAddress(fallback string) string {
	if strings.TrimSpace(fallback) != "" {
		return strings.TrimSpace(fallback)
	}
	if value := strings.TrimSpace(os.Getenv("PIXELFIELD_CANVAS_URL")); value != "" {
		return value
	}
	return defaultCanvasURL
}
