// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/pixelfield/internal/platform/cmd"
	"github.com/louisbranch/pixelfield/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	CanvasURL string `env:"PIXELFIELD_CANVAS_URL"    envDefault:"http://localhost:8080"`
	Grant     string `env:"PIXELFIELD_CANVAS_GRANT"`
	Actor     string `env:"PIXELFIELD_CANVAS_ACTOR"`
	HTTPAddr  string `env:"PIXELFIELD_MCP_HTTP_ADDR" envDefault:"localhost:8081"`
	Transport string `env:"PIXELFIELD_MCP_TRANSPORT" envDefault:"stdio"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.CanvasURL, "canvas-url", cfg.CanvasURL, "canvas service base URL")
	fs.StringVar(&cfg.Grant, "grant", cfg.Grant, "painter grant the tools act with")
	fs.StringVar(&cfg.Actor, "actor", cfg.Actor, "painter id for development mode (ignored when a grant is set)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(context.Context) error {
		return service.Run(ctx, service.Config{
			CanvasURL: cfg.CanvasURL,
			Grant:     cfg.Grant,
			Actor:     cfg.Actor,
			Transport: service.TransportKind(cfg.Transport),
			HTTPAddr:  cfg.HTTPAddr,
		})
	})
}
