package canvas

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("canvas", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "data/canvas.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Width != 128 || cfg.Height != 128 {
		t.Fatalf("expected 128x128 default canvas, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.PaletteSize != 32 {
		t.Fatalf("expected default palette size 32, got %d", cfg.PaletteSize)
	}
	if cfg.CooldownSeconds != 30 {
		t.Fatalf("expected default cooldown 30s, got %d", cfg.CooldownSeconds)
	}
	if cfg.Admin != "admin" {
		t.Fatalf("expected default admin, got %q", cfg.Admin)
	}
	if cfg.MintPrice != 100 {
		t.Fatalf("expected default mint price 100, got %d", cfg.MintPrice)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("PIXELFIELD_CANVAS_HTTP_ADDR", ":9090")
	t.Setenv("PIXELFIELD_CANVAS_WIDTH", "64")
	t.Setenv("PIXELFIELD_CANVAS_ADMIN", "gallery")

	fs := flag.NewFlagSet("canvas", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Width != 64 {
		t.Fatalf("expected env width 64, got %d", cfg.Width)
	}
	if cfg.Admin != "gallery" {
		t.Fatalf("expected env admin, got %q", cfg.Admin)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("canvas", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-http-addr", "127.0.0.1:9999",
		"-db-path", "/tmp/canvas.db",
		"-cooldown-seconds", "5",
		"-mint-price", "250",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("expected addr override, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/tmp/canvas.db" {
		t.Fatalf("expected db path override, got %q", cfg.DBPath)
	}
	if cfg.CooldownSeconds != 5 {
		t.Fatalf("expected cooldown override, got %d", cfg.CooldownSeconds)
	}
	if cfg.MintPrice != 250 {
		t.Fatalf("expected mint price override, got %d", cfg.MintPrice)
	}
}
