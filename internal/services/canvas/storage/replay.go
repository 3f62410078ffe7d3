package storage

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

// ApplyEntry folds one sealed journal entry into state. Entry payloads
// are authoritative: they carry everything the delta needs, so replaying
// a journal reproduces the exact ledger state the entries came from.
func ApplyEntry(state *canvas.State, entry event.Entry) error {
	switch entry.Type {
	case event.TypeCellPlaced:
		var p event.CellPlacedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode cell placement: %w", entry.Seq, err)
		}
		if p.Index < 0 || p.Index >= len(state.Cells) {
			return fmt.Errorf("entry %d: cell index %d outside %d cells", entry.Seq, p.Index, len(state.Cells))
		}
		state.Cells[p.Index] = canvas.Cell{Value: p.Value, LastWriter: p.Actor, LastWriteAt: p.At}
		if state.Cooldowns == nil {
			state.Cooldowns = make(map[string]uint64)
		}
		state.Cooldowns[p.Actor] = p.At

	case event.TypeCooldownUpdated:
		var p event.CooldownUpdatedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode cooldown update: %w", entry.Seq, err)
		}
		state.CooldownSeconds = p.NewSeconds

	case event.TypeSnapshotCreated, event.TypeSnapshotComposed:
		var p event.SnapshotRegisteredPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode snapshot registration: %w", entry.Seq, err)
		}
		if want := uint64(len(state.Snapshots)) + 1; p.SnapshotID != want {
			return fmt.Errorf("entry %d: snapshot id %d does not extend %d snapshots", entry.Seq, p.SnapshotID, len(state.Snapshots))
		}
		snap := canvas.Snapshot{
			ID:          p.SnapshotID,
			ContentHash: p.ContentHash,
			Creator:     p.Creator,
			ImageRef:    p.ImageRef,
			Ordinal:     p.Ordinal,
			CreatedAt:   p.At,
			Composed:    p.Composed,
		}
		if len(p.Payload) > 0 {
			snap.Payload = append([]uint8(nil), p.Payload...)
		}
		state.Snapshots = append(state.Snapshots, snap)

	case event.TypeCollectibleMinted:
		var p event.CollectibleMintedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode mint: %w", entry.Seq, err)
		}
		if want := uint64(len(state.Collectibles)) + 1; p.TokenID != want {
			return fmt.Errorf("entry %d: token id %d does not extend %d collectibles", entry.Seq, p.TokenID, len(state.Collectibles))
		}
		if p.Paid > math.MaxUint64-state.Balance {
			return fmt.Errorf("entry %d: payment %d overflows the balance", entry.Seq, p.Paid)
		}
		state.Collectibles = append(state.Collectibles, canvas.Collectible{
			TokenID:    p.TokenID,
			SnapshotID: p.SnapshotID,
			Owner:      p.Owner,
			Paid:       p.Paid,
			MintedAt:   p.At,
		})
		state.Balance += p.Paid

	case event.TypePriceUpdated:
		var p event.PriceUpdatedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode price update: %w", entry.Seq, err)
		}
		state.MintPrice = p.NewPrice

	case event.TypeTreasuryWithdrawn:
		var p event.TreasuryWithdrawnPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode withdrawal: %w", entry.Seq, err)
		}
		if p.Amount > state.Balance {
			return fmt.Errorf("entry %d: withdrawal %d exceeds balance %d", entry.Seq, p.Amount, state.Balance)
		}
		state.Balance -= p.Amount

	default:
		return fmt.Errorf("entry %d: unhandled type %q", entry.Seq, entry.Type)
	}

	state.LastEntrySeq = entry.Seq
	state.LastChainHash = entry.ChainHash
	return nil
}

// Replay rebuilds ledger state from a configuration and its full
// journal. Entries must be complete and in order, starting at 1.
func Replay(cfg canvas.Config, entries []event.Entry) (canvas.State, error) {
	normalized, err := canvas.NormalizeConfig(cfg)
	if err != nil {
		return canvas.State{}, err
	}

	state := canvas.State{
		Cells:           make([]canvas.Cell, normalized.Width*normalized.Height),
		Cooldowns:       make(map[string]uint64),
		CooldownSeconds: normalized.CooldownSeconds,
		MintPrice:       normalized.MintPrice,
	}
	for i, entry := range entries {
		if want := uint64(i) + 1; entry.Seq != want {
			return canvas.State{}, fmt.Errorf("entry at position %d has sequence %d, want %d", i, entry.Seq, want)
		}
		if err := ApplyEntry(&state, entry); err != nil {
			return canvas.State{}, err
		}
	}
	return state, nil
}
