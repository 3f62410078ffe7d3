package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.CanvasURL != "http://localhost:8080" {
		t.Fatalf("expected default canvas url, got %q", cfg.CanvasURL)
	}
	if cfg.HTTPAddr != "localhost:8081" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
	if cfg.Grant != "" || cfg.Actor != "" {
		t.Fatalf("expected empty identity defaults, got grant %q actor %q", cfg.Grant, cfg.Actor)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("PIXELFIELD_CANVAS_URL", "http://canvas.internal:8080")
	t.Setenv("PIXELFIELD_CANVAS_ACTOR", "painter-7")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.CanvasURL != "http://canvas.internal:8080" {
		t.Fatalf("expected env canvas url, got %q", cfg.CanvasURL)
	}
	if cfg.Actor != "painter-7" {
		t.Fatalf("expected env actor, got %q", cfg.Actor)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-canvas-url", "http://flag-canvas", "-http-addr", "flag-http", "-transport", "http"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.CanvasURL != "http://flag-canvas" {
		t.Fatalf("expected flag canvas url, got %q", cfg.CanvasURL)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
}
