package canvas

import (
	"context"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
)

// Canvas limits. Values are stored as single bytes, so the palette can
// never exceed 256 entries.
const (
	// MaxSide is the largest allowed canvas width or height.
	MaxSide = 4096
	// MaxCells caps the total cell count of a canvas.
	MaxCells = 1 << 22
	// MinPaletteSize is the smallest usable palette.
	MinPaletteSize = 2
	// MaxPaletteSize is the largest palette a canvas can use.
	MaxPaletteSize = 256
)

// Config describes a canvas at creation time.
type Config struct {
	// Width is the number of columns.
	Width int
	// Height is the number of rows.
	Height int
	// PaletteSize bounds cell values to [0, PaletteSize).
	PaletteSize int
	// CooldownSeconds is the initial per-actor write cooldown. Zero
	// disables the cooldown.
	CooldownSeconds uint64
	// Admin identifies the administrator account.
	Admin string
	// MintPrice is the initial price to mint a collectible.
	MintPrice uint64
}

// NormalizeConfig validates and normalizes a canvas configuration.
func NormalizeConfig(cfg Config) (Config, error) {
	if cfg.Width < 1 || cfg.Width > MaxSide || cfg.Height < 1 || cfg.Height > MaxSide {
		return Config{}, apperrors.WithMetadata(apperrors.CodeCanvasInvalidDimensions,
			"canvas dimensions must be between 1 and 4096 per side", map[string]string{
				"width":  strconv.Itoa(cfg.Width),
				"height": strconv.Itoa(cfg.Height),
			})
	}
	if cfg.Width*cfg.Height > MaxCells {
		return Config{}, apperrors.WithMetadata(apperrors.CodeCanvasInvalidDimensions,
			"canvas cell count exceeds the supported maximum", map[string]string{
				"cells": strconv.Itoa(cfg.Width * cfg.Height),
				"max":   strconv.Itoa(MaxCells),
			})
	}
	if cfg.PaletteSize < MinPaletteSize || cfg.PaletteSize > MaxPaletteSize {
		return Config{}, apperrors.WithMetadata(apperrors.CodeCanvasInvalidPalette,
			"palette size must be between 2 and 256", map[string]string{
				"palette_size": strconv.Itoa(cfg.PaletteSize),
			})
	}
	cfg.Admin = strings.TrimSpace(cfg.Admin)
	if cfg.Admin == "" {
		return Config{}, ErrAdminMissing
	}
	return cfg, nil
}

// Cell is a single canvas position.
type Cell struct {
	// Value is the palette index currently painted at this position.
	Value uint8
	// LastWriter is the actor that last wrote the cell. Empty until the
	// first write.
	LastWriter string
	// LastWriteAt is the caller-supplied time of the last write, in
	// seconds. Zero until the first write.
	LastWriteAt uint64
}

// Snapshot captures canvas content under a unique content hash.
type Snapshot struct {
	// ID is the sequential snapshot identifier (starts at 1).
	ID uint64
	// ContentHash is the canonical hash of the captured values.
	ContentHash string
	// Creator is the actor that registered the snapshot.
	Creator string
	// ImageRef is an opaque reference to the rendered image. Required
	// for live captures; composed snapshots may leave it empty because
	// their payload renders on demand.
	ImageRef string
	// Ordinal is the journal sequence of the registering entry. It
	// orders snapshots for provenance.
	Ordinal uint64
	// CreatedAt is the caller-supplied creation time, in seconds.
	CreatedAt uint64
	// Composed reports whether the snapshot came from an explicit
	// payload rather than the live grid.
	Composed bool
	// Payload holds the full value payload for composed snapshots so
	// they can be rendered without the live grid. Nil for live captures.
	Payload []uint8
}

// Collectible binds a snapshot to a minted token.
type Collectible struct {
	// TokenID is the sequential token identifier (starts at 1).
	TokenID uint64
	// SnapshotID is the snapshot the token is bound to.
	SnapshotID uint64
	// Owner is the actor the token was minted for.
	Owner string
	// Paid is the payment credited to the treasury at mint time.
	Paid uint64
	// MintedAt is the caller-supplied mint time, in seconds.
	MintedAt uint64
}

// PayoutSink transfers withdrawn funds to a recipient. Implementations
// must treat a returned error as "no funds moved".
type PayoutSink interface {
	Pay(ctx context.Context, recipient string, amount uint64) error
}
