package domain

import (
	"context"
	"fmt"

	"github.com/louisbranch/pixelfield/internal/services/canvas/api/client"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxRegionCells caps how many cells one region read may return. Full grids
// go through snapshots and the REST API, not tool output.
const maxRegionCells = 16384

// OverviewHandler reports canvas configuration, counters, and content hash.
func OverviewHandler(api CanvasAPI) mcp.ToolHandlerFor[OverviewInput, OverviewResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ OverviewInput) (*mcp.CallToolResult, OverviewResult, error) {
		stats, err := api.Stats(ctx)
		if err != nil {
			return nil, OverviewResult{}, fmt.Errorf("canvas overview failed: %w", err)
		}
		hash, err := api.ContentHash(ctx)
		if err != nil {
			return nil, OverviewResult{}, fmt.Errorf("canvas content hash failed: %w", err)
		}
		return nil, OverviewResult{
			Width:           stats.Width,
			Height:          stats.Height,
			PaletteSize:     stats.PaletteSize,
			CooldownSeconds: stats.CooldownSeconds,
			MintPrice:       stats.MintPrice,
			Snapshots:       stats.Snapshots,
			Collectibles:    stats.Collectibles,
			ContentHash:     hash,
		}, nil
	}
}

// RegionHandler reads a rectangular window of cell values.
func RegionHandler(api CanvasAPI) mcp.ToolHandlerFor[RegionInput, RegionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RegionInput) (*mcp.CallToolResult, RegionResult, error) {
		if input.Width < 1 || input.Height < 1 {
			return nil, RegionResult{}, fmt.Errorf("region window must be at least 1x1")
		}
		if input.X < 0 || input.Y < 0 {
			return nil, RegionResult{}, fmt.Errorf("region origin must not be negative")
		}
		if input.Width*input.Height > maxRegionCells {
			return nil, RegionResult{}, fmt.Errorf("region window is limited to %d cells", maxRegionCells)
		}

		grid, err := api.Grid(ctx)
		if err != nil {
			return nil, RegionResult{}, fmt.Errorf("canvas region read failed: %w", err)
		}
		if input.X+input.Width > grid.Width || input.Y+input.Height > grid.Height {
			return nil, RegionResult{}, fmt.Errorf("region window exceeds the %dx%d canvas", grid.Width, grid.Height)
		}

		rows := make([][]int, input.Height)
		for row := 0; row < input.Height; row++ {
			start := (input.Y+row)*grid.Width + input.X
			rows[row] = append([]int(nil), grid.Values[start:start+input.Width]...)
		}
		return nil, RegionResult{
			X:      input.X,
			Y:      input.Y,
			Width:  input.Width,
			Height: input.Height,
			Rows:   rows,
		}, nil
	}
}

// CellPlaceHandler writes one cell as the configured painter.
func CellPlaceHandler(api CanvasAPI) mcp.ToolHandlerFor[CellPlaceInput, CellPlaceResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CellPlaceInput) (*mcp.CallToolResult, CellPlaceResult, error) {
		placed, err := api.PlaceCell(ctx, input.X, input.Y, input.Value)
		if err != nil {
			return nil, CellPlaceResult{}, fmt.Errorf("canvas place cell failed: %w", err)
		}
		return nil, CellPlaceResult{
			X:     placed.X,
			Y:     placed.Y,
			Index: placed.Index,
			Value: placed.Cell.Value,
			Seq:   placed.Seq,
		}, nil
	}
}

// ContentHashHandler returns the canonical hash of the current grid.
func ContentHashHandler(api CanvasAPI) mcp.ToolHandlerFor[ContentHashInput, ContentHashResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ContentHashInput) (*mcp.CallToolResult, ContentHashResult, error) {
		hash, err := api.ContentHash(ctx)
		if err != nil {
			return nil, ContentHashResult{}, fmt.Errorf("canvas content hash failed: %w", err)
		}
		return nil, ContentHashResult{ContentHash: hash}, nil
	}
}

// CooldownStatusHandler reports the write cooldown for the configured painter.
func CooldownStatusHandler(api CanvasAPI) mcp.ToolHandlerFor[CooldownStatusInput, CooldownStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ CooldownStatusInput) (*mcp.CallToolResult, CooldownStatusResult, error) {
		cooldown, err := api.Cooldown(ctx)
		if err != nil {
			return nil, CooldownStatusResult{}, fmt.Errorf("canvas cooldown failed: %w", err)
		}
		return nil, CooldownStatusResult{
			Actor:            cooldown.Actor,
			CooldownSeconds:  cooldown.CooldownSeconds,
			RemainingSeconds: cooldown.RemainingSeconds,
		}, nil
	}
}

// SnapshotCreateHandler captures the live grid as a snapshot.
func SnapshotCreateHandler(api CanvasAPI) mcp.ToolHandlerFor[SnapshotCreateInput, SnapshotCreateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ SnapshotCreateInput) (*mcp.CallToolResult, SnapshotCreateResult, error) {
		created, err := api.CreateSnapshot(ctx)
		if err != nil {
			return nil, SnapshotCreateResult{}, fmt.Errorf("canvas create snapshot failed: %w", err)
		}
		return nil, SnapshotCreateResult{
			ID:          created.Snapshot.ID,
			ContentHash: created.Snapshot.ContentHash,
			Creator:     created.Snapshot.Creator,
			ImageRef:    created.Snapshot.ImageRef,
			Ordinal:     created.Snapshot.Ordinal,
			CreatedAt:   created.Snapshot.CreatedAt,
			Seq:         created.Seq,
		}, nil
	}
}

// SnapshotListHandler pages through registered snapshots.
func SnapshotListHandler(api CanvasAPI) mcp.ToolHandlerFor[SnapshotListInput, SnapshotListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SnapshotListInput) (*mcp.CallToolResult, SnapshotListResult, error) {
		page, err := api.ListSnapshots(ctx, client.ListSnapshotsRequest{
			Creator:   input.Creator,
			PageSize:  input.PageSize,
			PageToken: input.PageToken,
		})
		if err != nil {
			return nil, SnapshotListResult{}, fmt.Errorf("canvas list snapshots failed: %w", err)
		}
		entries := make([]SnapshotListEntry, len(page.Snapshots))
		for i, snap := range page.Snapshots {
			entries[i] = SnapshotListEntry{
				ID:          snap.ID,
				ContentHash: snap.ContentHash,
				Creator:     snap.Creator,
				ImageRef:    snap.ImageRef,
				Ordinal:     snap.Ordinal,
				CreatedAt:   snap.CreatedAt,
				Composed:    snap.Composed,
			}
		}
		return nil, SnapshotListResult{
			Snapshots:     entries,
			NextPageToken: page.NextPageToken,
		}, nil
	}
}

// SnapshotGetHandler fetches one snapshot by identifier.
func SnapshotGetHandler(api CanvasAPI) mcp.ToolHandlerFor[SnapshotGetInput, SnapshotGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SnapshotGetInput) (*mcp.CallToolResult, SnapshotGetResult, error) {
		if input.ID == 0 {
			return nil, SnapshotGetResult{}, fmt.Errorf("snapshot id is required")
		}
		snap, err := api.Snapshot(ctx, input.ID)
		if err != nil {
			return nil, SnapshotGetResult{}, fmt.Errorf("canvas snapshot failed: %w", err)
		}
		return nil, SnapshotGetResult{
			ID:          snap.ID,
			ContentHash: snap.ContentHash,
			Creator:     snap.Creator,
			ImageRef:    snap.ImageRef,
			Ordinal:     snap.Ordinal,
			CreatedAt:   snap.CreatedAt,
			Composed:    snap.Composed,
		}, nil
	}
}

// CollectibleMintHandler mints the collectible for a snapshot.
func CollectibleMintHandler(api CanvasAPI) mcp.ToolHandlerFor[CollectibleMintInput, CollectibleMintResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CollectibleMintInput) (*mcp.CallToolResult, CollectibleMintResult, error) {
		if input.SnapshotID == 0 {
			return nil, CollectibleMintResult{}, fmt.Errorf("snapshot_id is required")
		}
		minted, err := api.Mint(ctx, input.SnapshotID, input.Payment)
		if err != nil {
			return nil, CollectibleMintResult{}, fmt.Errorf("canvas mint failed: %w", err)
		}
		return nil, CollectibleMintResult{
			TokenID:       minted.Collectible.TokenID,
			SnapshotID:    minted.Collectible.SnapshotID,
			Owner:         minted.Collectible.Owner,
			Paid:          minted.Collectible.Paid,
			MintedAt:      minted.Collectible.MintedAt,
			AlreadyMinted: minted.AlreadyMinted,
			Seq:           minted.Seq,
		}, nil
	}
}
