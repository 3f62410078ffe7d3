package event

import (
	"context"
	"strings"
)

// Type identifies the type of a journal entry.
type Type string

// Canvas entries.
const (
	// TypeCellPlaced records a painter writing a palette value into a cell.
	TypeCellPlaced Type = "canvas.cell_placed"
	// TypeCooldownUpdated records an administrator changing the cooldown duration.
	TypeCooldownUpdated Type = "canvas.cooldown_updated"
)

// Snapshot entries.
const (
	// TypeSnapshotCreated records a snapshot captured from the live grid.
	TypeSnapshotCreated Type = "snapshot.created"
	// TypeSnapshotComposed records a snapshot registered from an explicit payload.
	TypeSnapshotComposed Type = "snapshot.composed"
)

// Collectible entries.
const (
	// TypeCollectibleMinted records a snapshot being bound to a new token.
	TypeCollectibleMinted Type = "collectible.minted"
	// TypePriceUpdated records an administrator changing the mint price.
	TypePriceUpdated Type = "collectible.price_updated"
)

// Treasury entries.
const (
	// TypeTreasuryWithdrawn records the accumulated balance being paid out.
	TypeTreasuryWithdrawn Type = "treasury.withdrawn"
)

// Entry represents an immutable entry in the canvas journal.
type Entry struct {
	// Seq is the entry sequence number (starts at 1). Assigned by the
	// ledger when the entry is sealed.
	Seq uint64
	// Hash is the content-addressed identity (SHA-256 truncated to
	// 128-bit). Assigned by the ledger when the entry is sealed.
	Hash string
	// PrevHash is the previous entry's chain hash (empty for the first
	// entry). Assigned by the ledger when the entry is sealed.
	PrevHash string
	// ChainHash links this entry to the previous entry (SHA-256).
	// Assigned by the ledger when the entry is sealed.
	ChainHash string
	// At is the caller-supplied clock reading, in seconds, at which the
	// mutation occurred.
	At uint64
	// Type identifies the kind of entry.
	Type Type
	// Actor is the identifier of the painter or administrator that
	// triggered the mutation.
	Actor string
	// RequestID correlates the entry with the request that produced it.
	RequestID string
	// PayloadJSON holds entry-specific data as JSON.
	PayloadJSON []byte
}

// Journal persists sealed entries. Implementations must write the entry
// and the state change it describes atomically; an error leaves the
// durable state untouched.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
}

// IsValid reports whether the entry type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the entry type (e.g., "canvas",
// "snapshot").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// CellPlacedPayload describes a cell placement.
type CellPlacedPayload struct {
	Index int    `json:"index"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Value uint8  `json:"value"`
	Actor string `json:"actor"`
	At    uint64 `json:"at"`
}

// CooldownUpdatedPayload describes a cooldown duration change.
type CooldownUpdatedPayload struct {
	OldSeconds uint64 `json:"old_seconds"`
	NewSeconds uint64 `json:"new_seconds"`
	Requestor  string `json:"requestor"`
}

// SnapshotRegisteredPayload describes a snapshot registration. It is
// shared by the live-capture and composed variants; Composed tells them
// apart. Composed registrations carry the full pixel payload so the
// journal alone reproduces the snapshot.
type SnapshotRegisteredPayload struct {
	SnapshotID  uint64  `json:"snapshot_id"`
	ContentHash string  `json:"content_hash"`
	Creator     string  `json:"creator"`
	ImageRef    string  `json:"image_ref,omitempty"`
	Ordinal     uint64  `json:"ordinal"`
	At          uint64  `json:"at"`
	Composed    bool    `json:"composed"`
	Payload     []uint8 `json:"payload,omitempty"`
}

// CollectibleMintedPayload describes a snapshot being bound to a token.
type CollectibleMintedPayload struct {
	TokenID    uint64 `json:"token_id"`
	SnapshotID uint64 `json:"snapshot_id"`
	Owner      string `json:"owner"`
	Paid       uint64 `json:"paid"`
	At         uint64 `json:"at"`
}

// PriceUpdatedPayload describes a mint price change.
type PriceUpdatedPayload struct {
	OldPrice  uint64 `json:"old_price"`
	NewPrice  uint64 `json:"new_price"`
	Requestor string `json:"requestor"`
}

// TreasuryWithdrawnPayload describes a balance payout.
type TreasuryWithdrawnPayload struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	At        uint64 `json:"at"`
}
