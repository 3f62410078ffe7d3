// Package canvas parses canvas command flags and starts the service process.
package canvas

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/pixelfield/internal/platform/cmd"
	server "github.com/louisbranch/pixelfield/internal/services/canvas/app"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
)

// Config holds canvas command configuration.
type Config struct {
	HTTPAddr        string `env:"PIXELFIELD_CANVAS_HTTP_ADDR"        envDefault:"localhost:8080"`
	DBPath          string `env:"PIXELFIELD_CANVAS_DB_PATH"          envDefault:"data/canvas.db"`
	BlobDir         string `env:"PIXELFIELD_CANVAS_BLOB_DIR"         envDefault:"data/blobs"`
	PalettePath     string `env:"PIXELFIELD_CANVAS_PALETTE"`
	Width           int    `env:"PIXELFIELD_CANVAS_WIDTH"            envDefault:"128"`
	Height          int    `env:"PIXELFIELD_CANVAS_HEIGHT"           envDefault:"128"`
	PaletteSize     int    `env:"PIXELFIELD_CANVAS_PALETTE_SIZE"     envDefault:"32"`
	CooldownSeconds uint64 `env:"PIXELFIELD_CANVAS_COOLDOWN_SECONDS" envDefault:"30"`
	Admin           string `env:"PIXELFIELD_CANVAS_ADMIN"            envDefault:"admin"`
	MintPrice       uint64 `env:"PIXELFIELD_CANVAS_MINT_PRICE"       envDefault:"100"`
	RenderScale     int    `env:"PIXELFIELD_CANVAS_RENDER_SCALE"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "canvas HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "canvas SQLite database path")
	fs.StringVar(&cfg.BlobDir, "blob-dir", cfg.BlobDir, "snapshot image blob directory")
	fs.StringVar(&cfg.PalettePath, "palette", cfg.PalettePath, "palette YAML file (empty uses the built-in palette)")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "canvas width in cells (first boot only)")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "canvas height in cells (first boot only)")
	fs.IntVar(&cfg.PaletteSize, "palette-size", cfg.PaletteSize, "number of usable palette entries (first boot only)")
	fs.Uint64Var(&cfg.CooldownSeconds, "cooldown-seconds", cfg.CooldownSeconds, "initial write cooldown in seconds (first boot only)")
	fs.StringVar(&cfg.Admin, "admin", cfg.Admin, "administrator actor id (first boot only)")
	fs.Uint64Var(&cfg.MintPrice, "mint-price", cfg.MintPrice, "initial collectible mint price (first boot only)")
	fs.IntVar(&cfg.RenderScale, "render-scale", cfg.RenderScale, "pixels per cell in rendered snapshots (0 auto-scales)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the canvas HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCanvas, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:    cfg.HTTPAddr,
			DBPath:      cfg.DBPath,
			BlobDir:     cfg.BlobDir,
			PalettePath: cfg.PalettePath,
			Canvas: canvas.Config{
				Width:           cfg.Width,
				Height:          cfg.Height,
				PaletteSize:     cfg.PaletteSize,
				CooldownSeconds: cfg.CooldownSeconds,
				Admin:           cfg.Admin,
				MintPrice:       cfg.MintPrice,
			},
			RenderScale: cfg.RenderScale,
		}); err != nil {
			return fmt.Errorf("serve canvas: %w", err)
		}
		return nil
	})
}
