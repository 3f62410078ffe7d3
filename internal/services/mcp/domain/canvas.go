package domain

import (
	"context"

	"github.com/louisbranch/pixelfield/internal/services/canvas/api/client"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CanvasAPI is the canvas REST surface the MCP tools call. It is satisfied
// by *client.Client.
type CanvasAPI interface {
	Grid(ctx context.Context) (client.Grid, error)
	ContentHash(ctx context.Context) (string, error)
	Cooldown(ctx context.Context) (client.Cooldown, error)
	Stats(ctx context.Context) (client.Stats, error)
	PlaceCell(ctx context.Context, x, y, value int) (client.PlaceResult, error)
	CreateSnapshot(ctx context.Context) (client.SnapshotResult, error)
	ListSnapshots(ctx context.Context, req client.ListSnapshotsRequest) (client.SnapshotPage, error)
	Snapshot(ctx context.Context, id uint64) (client.Snapshot, error)
	Mint(ctx context.Context, snapshotID, payment uint64) (client.MintOutcome, error)
}

// OverviewInput represents the MCP tool input for the canvas overview.
type OverviewInput struct{}

// OverviewResult represents the MCP tool output for the canvas overview.
type OverviewResult struct {
	Width           int    `json:"width" jsonschema:"canvas width in cells"`
	Height          int    `json:"height" jsonschema:"canvas height in cells"`
	PaletteSize     int    `json:"palette_size" jsonschema:"number of palette entries"`
	CooldownSeconds uint64 `json:"cooldown_seconds" jsonschema:"seconds a painter waits between writes"`
	MintPrice       uint64 `json:"mint_price" jsonschema:"minimum payment to mint a collectible"`
	Snapshots       int    `json:"snapshots" jsonschema:"number of registered snapshots"`
	Collectibles    int    `json:"collectibles" jsonschema:"number of minted collectibles"`
	ContentHash     string `json:"content_hash" jsonschema:"canonical SHA-256 of the current grid"`
}

// RegionInput represents the MCP tool input for a windowed grid read.
type RegionInput struct {
	X      int `json:"x" jsonschema:"left edge of the window"`
	Y      int `json:"y" jsonschema:"top edge of the window"`
	Width  int `json:"width" jsonschema:"window width in cells"`
	Height int `json:"height" jsonschema:"window height in cells"`
}

// RegionResult represents the MCP tool output for a windowed grid read.
type RegionResult struct {
	X      int     `json:"x" jsonschema:"left edge of the window"`
	Y      int     `json:"y" jsonschema:"top edge of the window"`
	Width  int     `json:"width" jsonschema:"window width in cells"`
	Height int     `json:"height" jsonschema:"window height in cells"`
	Rows   [][]int `json:"rows" jsonschema:"cell values row by row, top to bottom"`
}

// CellPlaceInput represents the MCP tool input for placing one cell.
type CellPlaceInput struct {
	X     int `json:"x" jsonschema:"cell x coordinate"`
	Y     int `json:"y" jsonschema:"cell y coordinate"`
	Value int `json:"value" jsonschema:"palette index to write"`
}

// CellPlaceResult represents the MCP tool output for placing one cell.
type CellPlaceResult struct {
	X     int    `json:"x" jsonschema:"cell x coordinate"`
	Y     int    `json:"y" jsonschema:"cell y coordinate"`
	Index int    `json:"index" jsonschema:"linear cell index (y*width+x)"`
	Value int    `json:"value" jsonschema:"palette index written"`
	Seq   uint64 `json:"seq" jsonschema:"journal sequence of the write"`
}

// ContentHashInput represents the MCP tool input for the grid content hash.
type ContentHashInput struct{}

// ContentHashResult represents the MCP tool output for the grid content hash.
type ContentHashResult struct {
	ContentHash string `json:"content_hash" jsonschema:"canonical SHA-256 of the current grid"`
}

// CooldownStatusInput represents the MCP tool input for cooldown status.
type CooldownStatusInput struct{}

// CooldownStatusResult represents the MCP tool output for cooldown status.
type CooldownStatusResult struct {
	Actor            string `json:"actor,omitempty" jsonschema:"painter the status applies to"`
	CooldownSeconds  uint64 `json:"cooldown_seconds" jsonschema:"configured cooldown between writes"`
	RemainingSeconds uint64 `json:"remaining_seconds" jsonschema:"seconds until the painter may write again"`
}

// SnapshotCreateInput represents the MCP tool input for capturing a snapshot.
type SnapshotCreateInput struct{}

// SnapshotCreateResult represents the MCP tool output for capturing a snapshot.
type SnapshotCreateResult struct {
	ID          uint64 `json:"id" jsonschema:"snapshot identifier"`
	ContentHash string `json:"content_hash" jsonschema:"hash of the captured grid"`
	Creator     string `json:"creator" jsonschema:"painter who captured the snapshot"`
	ImageRef    string `json:"image_ref,omitempty" jsonschema:"content locator of the rendered image"`
	Ordinal     uint64 `json:"ordinal" jsonschema:"journal position at capture"`
	CreatedAt   uint64 `json:"created_at" jsonschema:"capture timestamp in seconds"`
	Seq         uint64 `json:"seq" jsonschema:"journal sequence of the capture"`
}

// SnapshotListInput represents the MCP tool input for listing snapshots.
type SnapshotListInput struct {
	Creator   string `json:"creator,omitempty" jsonschema:"only snapshots captured by this painter"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"snapshots per page"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// SnapshotListEntry is one snapshot in a listing.
type SnapshotListEntry struct {
	ID          uint64 `json:"id" jsonschema:"snapshot identifier"`
	ContentHash string `json:"content_hash" jsonschema:"hash of the captured grid"`
	Creator     string `json:"creator" jsonschema:"painter who captured the snapshot"`
	ImageRef    string `json:"image_ref,omitempty" jsonschema:"content locator of the rendered image"`
	Ordinal     uint64 `json:"ordinal" jsonschema:"journal position at capture"`
	CreatedAt   uint64 `json:"created_at" jsonschema:"capture timestamp in seconds"`
	Composed    bool   `json:"composed" jsonschema:"true when the snapshot was composed from a supplied payload"`
}

// SnapshotListResult represents the MCP tool output for listing snapshots.
type SnapshotListResult struct {
	Snapshots     []SnapshotListEntry `json:"snapshots" jsonschema:"snapshots on this page"`
	NextPageToken string              `json:"next_page_token,omitempty" jsonschema:"token for the next page"`
}

// SnapshotGetInput represents the MCP tool input for fetching a snapshot.
type SnapshotGetInput struct {
	ID uint64 `json:"id" jsonschema:"snapshot identifier"`
}

// SnapshotGetResult represents the MCP tool output for fetching a snapshot.
type SnapshotGetResult struct {
	ID          uint64 `json:"id" jsonschema:"snapshot identifier"`
	ContentHash string `json:"content_hash" jsonschema:"hash of the captured grid"`
	Creator     string `json:"creator" jsonschema:"painter who captured the snapshot"`
	ImageRef    string `json:"image_ref,omitempty" jsonschema:"content locator of the rendered image"`
	Ordinal     uint64 `json:"ordinal" jsonschema:"journal position at capture"`
	CreatedAt   uint64 `json:"created_at" jsonschema:"capture timestamp in seconds"`
	Composed    bool   `json:"composed" jsonschema:"true when the snapshot was composed from a supplied payload"`
}

// CollectibleMintInput represents the MCP tool input for minting a collectible.
type CollectibleMintInput struct {
	SnapshotID uint64 `json:"snapshot_id" jsonschema:"snapshot to mint"`
	Payment    uint64 `json:"payment" jsonschema:"payment offered; must meet the mint price"`
}

// CollectibleMintResult represents the MCP tool output for minting a collectible.
type CollectibleMintResult struct {
	TokenID       uint64 `json:"token_id" jsonschema:"collectible token identifier"`
	SnapshotID    uint64 `json:"snapshot_id" jsonschema:"snapshot the token binds to"`
	Owner         string `json:"owner" jsonschema:"painter who owns the token"`
	Paid          uint64 `json:"paid" jsonschema:"payment recorded for the mint"`
	MintedAt      uint64 `json:"minted_at" jsonschema:"mint timestamp in seconds"`
	AlreadyMinted bool   `json:"already_minted,omitempty" jsonschema:"true when the snapshot was minted earlier and the original token is returned"`
	Seq           uint64 `json:"seq,omitempty" jsonschema:"journal sequence of the mint; zero on replay"`
}

// OverviewTool defines the MCP tool schema for the canvas overview.
func OverviewTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_overview",
		Description: "Reports canvas dimensions, palette, cooldown, mint price, counters, and the current content hash",
	}
}

// RegionTool defines the MCP tool schema for windowed grid reads.
func RegionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_region",
		Description: "Reads a rectangular window of cell values from the canvas",
	}
}

// CellPlaceTool defines the MCP tool schema for placing a cell.
func CellPlaceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_place_cell",
		Description: "Writes one palette value to a cell as the configured painter",
	}
}

// ContentHashTool defines the MCP tool schema for the grid content hash.
func ContentHashTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_content_hash",
		Description: "Returns the canonical SHA-256 hash of the current grid",
	}
}

// CooldownStatusTool defines the MCP tool schema for cooldown status.
func CooldownStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_cooldown",
		Description: "Reports the write cooldown for the configured painter",
	}
}

// SnapshotCreateTool defines the MCP tool schema for capturing a snapshot.
func SnapshotCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_create_snapshot",
		Description: "Captures the live grid as an immutable snapshot owned by the configured painter",
	}
}

// SnapshotListTool defines the MCP tool schema for listing snapshots.
func SnapshotListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_list_snapshots",
		Description: "Lists registered snapshots, optionally filtered by creator, with pagination",
	}
}

// SnapshotGetTool defines the MCP tool schema for fetching a snapshot.
func SnapshotGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_snapshot",
		Description: "Fetches one snapshot by identifier",
	}
}

// CollectibleMintTool defines the MCP tool schema for minting a collectible.
func CollectibleMintTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "canvas_mint_collectible",
		Description: "Mints the collectible for a snapshot the configured painter created",
	}
}
