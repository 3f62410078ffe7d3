package client

import "encoding/json"

// Cell is a canvas cell as the API reports it.
type Cell struct {
	Value       int    `json:"value"`
	LastWriter  string `json:"lastWriter,omitempty"`
	LastWriteAt uint64 `json:"lastWriteAt,omitempty"`
}

// CellAt is a cell read with its coordinates.
type CellAt struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Cell Cell `json:"cell"`
}

// Grid is the full canvas: dimensions, palette size, and row-major values.
type Grid struct {
	Width       int   `json:"width"`
	Height      int   `json:"height"`
	PaletteSize int   `json:"paletteSize"`
	Values      []int `json:"values"`
}

// Cooldown reports the write cooldown for an actor.
type Cooldown struct {
	Actor            string `json:"actor,omitempty"`
	CooldownSeconds  uint64 `json:"cooldownSeconds"`
	RemainingSeconds uint64 `json:"remainingSeconds"`
}

// Stats reports canvas configuration and ledger counters.
type Stats struct {
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	PaletteSize     int    `json:"paletteSize"`
	CooldownSeconds uint64 `json:"cooldownSeconds"`
	MintPrice       uint64 `json:"mintPrice"`
	Admin           string `json:"admin"`
	Snapshots       int    `json:"snapshots"`
	Collectibles    int    `json:"collectibles"`
	TreasuryBalance uint64 `json:"treasuryBalance"`
}

// PlaceResult reports a successful cell write.
type PlaceResult struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Index int    `json:"index"`
	Cell  Cell   `json:"cell"`
	Seq   uint64 `json:"seq"`
}

// Snapshot is a registered canvas snapshot.
type Snapshot struct {
	ID          uint64 `json:"id"`
	ContentHash string `json:"contentHash"`
	Creator     string `json:"creator"`
	ImageRef    string `json:"imageRef,omitempty"`
	Ordinal     uint64 `json:"ordinal"`
	CreatedAt   uint64 `json:"createdAt"`
	Composed    bool   `json:"composed"`
	Payload     []byte `json:"payload,omitempty"`
}

// SnapshotResult reports a snapshot registration.
type SnapshotResult struct {
	Snapshot Snapshot `json:"snapshot"`
	Seq      uint64   `json:"seq,omitempty"`
}

// SnapshotPage is one page of a snapshot listing.
type SnapshotPage struct {
	Snapshots     []Snapshot `json:"snapshots"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// Collectible is a minted snapshot token.
type Collectible struct {
	TokenID    uint64 `json:"tokenId"`
	SnapshotID uint64 `json:"snapshotId"`
	Owner      string `json:"owner"`
	Paid       uint64 `json:"paid"`
	MintedAt   uint64 `json:"mintedAt"`
}

// MintOutcome reports a mint call. AlreadyMinted marks the idempotent replay
// of an earlier mint; Seq is zero in that case.
type MintOutcome struct {
	Collectible   Collectible `json:"collectible"`
	AlreadyMinted bool        `json:"alreadyMinted,omitempty"`
	Seq           uint64      `json:"seq,omitempty"`
}

// CooldownUpdate reports an admin cooldown change.
type CooldownUpdate struct {
	OldSeconds uint64 `json:"oldSeconds"`
	NewSeconds uint64 `json:"newSeconds"`
	Seq        uint64 `json:"seq"`
}

// PriceUpdate reports an admin mint price change.
type PriceUpdate struct {
	OldPrice uint64 `json:"oldPrice"`
	NewPrice uint64 `json:"newPrice"`
	Seq      uint64 `json:"seq"`
}

// WithdrawOutcome reports a treasury payout.
type WithdrawOutcome struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	Seq       uint64 `json:"seq"`
}

// Entry is a sealed journal entry. Entry keys stay snake_case to match the
// payloads the canvas seals into the journal.
type Entry struct {
	Seq       uint64          `json:"seq"`
	Hash      string          `json:"hash"`
	PrevHash  string          `json:"prev_hash,omitempty"`
	ChainHash string          `json:"chain_hash"`
	At        uint64          `json:"at"`
	Type      string          `json:"type"`
	Actor     string          `json:"actor"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}
