package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/louisbranch/pixelfield/internal/platform/requestctx"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
)

// Ledger is the in-memory authority for a single canvas.
//
// The ledger is not safe for concurrent use; callers serialize mutations
// and reads. Mutations validate first, then record a sealed journal
// entry, and only then touch memory, so a failed operation of any kind
// leaves the ledger exactly as it was.
type Ledger struct {
	width       int
	height      int
	paletteSize int
	admin       string

	journal event.Journal
	payout  PayoutSink

	cells           []Cell
	cooldowns       map[string]uint64
	cooldownSeconds uint64

	snapshots     []Snapshot
	hashIndex     map[string]uint64
	creatorIndex  map[string][]uint64
	collectibles  map[uint64]Collectible
	snapshotToken map[uint64]uint64
	mintPrice     uint64
	balance       uint64

	lastSeq       uint64
	lastChainHash string
}

// State is the full exported ledger state, used for persistence and
// restore. Slices and maps are deep copies; mutating a State never
// affects the ledger it came from.
type State struct {
	// Cells holds every cell in row-major order.
	Cells []Cell
	// Cooldowns maps actors to their last recorded action time.
	Cooldowns map[string]uint64
	// CooldownSeconds is the active cooldown duration.
	CooldownSeconds uint64
	// MintPrice is the active mint price.
	MintPrice uint64
	// Balance is the accumulated treasury balance.
	Balance uint64
	// Snapshots holds every snapshot ordered by ID.
	Snapshots []Snapshot
	// Collectibles holds every collectible ordered by token ID.
	Collectibles []Collectible
	// LastEntrySeq is the sequence of the most recent journal entry.
	LastEntrySeq uint64
	// LastChainHash is the chain hash of the most recent journal entry.
	LastChainHash string
}

// New creates a blank ledger from a configuration. The journal and
// payout sink may be nil: a nil journal keeps the ledger volatile, and a
// nil payout sink rejects withdrawals of a positive balance.
func New(cfg Config, journal event.Journal, payout PayoutSink) (*Ledger, error) {
	normalized, err := NormalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		width:           normalized.Width,
		height:          normalized.Height,
		paletteSize:     normalized.PaletteSize,
		admin:           normalized.Admin,
		journal:         journal,
		payout:          payout,
		cells:           make([]Cell, normalized.Width*normalized.Height),
		cooldowns:       make(map[string]uint64),
		cooldownSeconds: normalized.CooldownSeconds,
		hashIndex:       make(map[string]uint64),
		creatorIndex:    make(map[string][]uint64),
		collectibles:    make(map[uint64]Collectible),
		snapshotToken:   make(map[uint64]uint64),
		mintPrice:       normalized.MintPrice,
	}, nil
}

// Restore rebuilds a ledger from previously exported state. The state
// must be internally consistent with the configuration; a corrupt store
// fails loudly here rather than surfacing as bad writes later.
func Restore(cfg Config, state State, journal event.Journal, payout PayoutSink) (*Ledger, error) {
	ledger, err := New(cfg, journal, payout)
	if err != nil {
		return nil, err
	}

	if len(state.Cells) != ledger.width*ledger.height {
		return nil, fmt.Errorf("restore canvas: %d cells does not match %dx%d", len(state.Cells), ledger.width, ledger.height)
	}
	for i, cell := range state.Cells {
		if int(cell.Value) >= ledger.paletteSize {
			return nil, fmt.Errorf("restore canvas: cell %d value %d exceeds palette %d", i, cell.Value, ledger.paletteSize)
		}
	}
	copy(ledger.cells, state.Cells)

	for actor, last := range state.Cooldowns {
		actor = strings.TrimSpace(actor)
		if actor == "" {
			return nil, fmt.Errorf("restore canvas: cooldown entry with empty actor")
		}
		ledger.cooldowns[actor] = last
	}
	ledger.cooldownSeconds = state.CooldownSeconds
	ledger.mintPrice = state.MintPrice
	ledger.balance = state.Balance

	for i, snap := range state.Snapshots {
		want := uint64(i) + 1
		if snap.ID != want {
			return nil, fmt.Errorf("restore canvas: snapshot id %d at position %d, want %d", snap.ID, i, want)
		}
		if strings.TrimSpace(snap.ContentHash) == "" || strings.TrimSpace(snap.Creator) == "" {
			return nil, fmt.Errorf("restore canvas: snapshot %d is missing required fields", snap.ID)
		}
		if snap.Composed {
			if len(snap.Payload) != ledger.width*ledger.height {
				return nil, fmt.Errorf("restore canvas: snapshot %d payload has %d values, want %d", snap.ID, len(snap.Payload), ledger.width*ledger.height)
			}
			for j, value := range snap.Payload {
				if int(value) >= ledger.paletteSize {
					return nil, fmt.Errorf("restore canvas: snapshot %d payload value %d at %d exceeds palette %d", snap.ID, value, j, ledger.paletteSize)
				}
			}
		} else {
			if strings.TrimSpace(snap.ImageRef) == "" {
				return nil, fmt.Errorf("restore canvas: snapshot %d is missing its image reference", snap.ID)
			}
			if len(snap.Payload) != 0 {
				return nil, fmt.Errorf("restore canvas: snapshot %d carries a payload but is not composed", snap.ID)
			}
		}
		if _, dup := ledger.hashIndex[snap.ContentHash]; dup {
			return nil, fmt.Errorf("restore canvas: snapshot %d duplicates content hash %s", snap.ID, snap.ContentHash)
		}
		ledger.snapshots = append(ledger.snapshots, cloneSnapshot(snap))
		ledger.hashIndex[snap.ContentHash] = snap.ID
		ledger.creatorIndex[snap.Creator] = append(ledger.creatorIndex[snap.Creator], snap.ID)
	}

	for i, col := range state.Collectibles {
		want := uint64(i) + 1
		if col.TokenID != want {
			return nil, fmt.Errorf("restore canvas: token id %d at position %d, want %d", col.TokenID, i, want)
		}
		if col.SnapshotID == 0 || col.SnapshotID > uint64(len(ledger.snapshots)) {
			return nil, fmt.Errorf("restore canvas: token %d references missing snapshot %d", col.TokenID, col.SnapshotID)
		}
		if _, dup := ledger.snapshotToken[col.SnapshotID]; dup {
			return nil, fmt.Errorf("restore canvas: snapshot %d is bound to more than one token", col.SnapshotID)
		}
		ledger.collectibles[col.TokenID] = col
		ledger.snapshotToken[col.SnapshotID] = col.TokenID
	}

	ledger.lastSeq = state.LastEntrySeq
	ledger.lastChainHash = state.LastChainHash
	return ledger, nil
}

// Width returns the number of columns.
func (l *Ledger) Width() int { return l.width }

// Height returns the number of rows.
func (l *Ledger) Height() int { return l.height }

// PaletteSize returns the exclusive upper bound for cell values.
func (l *Ledger) PaletteSize() int { return l.paletteSize }

// Admin returns the administrator account.
func (l *Ledger) Admin() string { return l.admin }

// CooldownSeconds returns the active cooldown duration.
func (l *Ledger) CooldownSeconds() uint64 { return l.cooldownSeconds }

// MintPrice returns the active mint price.
func (l *Ledger) MintPrice() uint64 { return l.mintPrice }

// Balance returns the accumulated treasury balance.
func (l *Ledger) Balance() uint64 { return l.balance }

// LastEntrySeq returns the sequence of the most recent journal entry,
// or zero when nothing has been recorded.
func (l *Ledger) LastEntrySeq() uint64 { return l.lastSeq }

// LastChainHash returns the chain hash of the most recent journal entry.
func (l *Ledger) LastChainHash() string { return l.lastChainHash }

// Cell returns the cell at (x, y).
func (l *Ledger) Cell(x, y int) (Cell, error) {
	if err := l.checkCoordinates(x, y); err != nil {
		return Cell{}, err
	}
	return l.cells[y*l.width+x], nil
}

// CellsAt returns the cells at the given linear indices, in the order
// requested. Every index is validated before any cell is read, so a bad
// index never yields a partial result.
func (l *Ledger) CellsAt(indices []int) ([]Cell, error) {
	for pos, index := range indices {
		if index < 0 || index >= len(l.cells) {
			return nil, apperrors.WithMetadata(apperrors.CodeCoordinateOutOfRange,
				"cell index is outside the canvas", map[string]string{
					"position": strconv.Itoa(pos),
					"index":    strconv.Itoa(index),
					"cells":    strconv.Itoa(len(l.cells)),
				})
		}
	}
	out := make([]Cell, len(indices))
	for pos, index := range indices {
		out[pos] = l.cells[index]
	}
	return out, nil
}

// Cells returns a copy of every cell in row-major order.
func (l *Ledger) Cells() []Cell {
	out := make([]Cell, len(l.cells))
	copy(out, l.cells)
	return out
}

// Values returns a copy of every cell value in row-major order.
func (l *Ledger) Values() []uint8 {
	return l.values()
}

// ContentHash returns the canonical hash of the current grid values.
func (l *Ledger) ContentHash() string {
	return HashValues(l.values())
}

// Remaining returns how many seconds of cooldown are left for an actor
// at the caller-supplied time. Actors that never acted owe nothing.
//
// The wait is always computed against the active duration, so shortening
// the cooldown releases actors that are already waiting.
func (l *Ledger) Remaining(actor string, now uint64) uint64 {
	return l.remaining(strings.TrimSpace(actor), now)
}

// CanAct reports whether an actor may write at the caller-supplied time.
func (l *Ledger) CanAct(actor string, now uint64) bool {
	return l.Remaining(actor, now) == 0
}

// PlaceCell writes a palette value into the cell at (x, y) on behalf of
// an actor. Validation runs in a fixed order: x bound, y bound, value
// bound, then cooldown. On success the cell, the actor's cooldown, and
// the journal advance together.
func (l *Ledger) PlaceCell(ctx context.Context, x, y, value int, actor string, now uint64) (PlaceResult, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return PlaceResult{}, ErrActorMissing
	}
	if err := l.checkCoordinates(x, y); err != nil {
		return PlaceResult{}, err
	}
	if value < 0 || value >= l.paletteSize {
		return PlaceResult{}, apperrors.WithMetadata(apperrors.CodeInvalidValue,
			"value is outside the palette", map[string]string{
				"value":        strconv.Itoa(value),
				"palette_size": strconv.Itoa(l.paletteSize),
			})
	}
	if remaining := l.remaining(actor, now); remaining > 0 {
		return PlaceResult{}, apperrors.WithMetadata(apperrors.CodeCooldownActive,
			"actor is cooling down", map[string]string{
				"remaining_seconds": strconv.FormatUint(remaining, 10),
			})
	}

	index := y*l.width + x
	payload, err := json.Marshal(event.CellPlacedPayload{
		Index: index,
		X:     x,
		Y:     y,
		Value: uint8(value),
		Actor: actor,
		At:    now,
	})
	if err != nil {
		return PlaceResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode placement payload", err)
	}

	entry, err := l.seal(ctx, event.Entry{
		At:          now,
		Type:        event.TypeCellPlaced,
		Actor:       actor,
		PayloadJSON: payload,
	})
	if err != nil {
		return PlaceResult{}, err
	}
	if err := l.record(ctx, entry); err != nil {
		return PlaceResult{}, err
	}

	cell := Cell{Value: uint8(value), LastWriter: actor, LastWriteAt: now}
	l.cells[index] = cell
	l.cooldowns[actor] = now
	l.advance(entry)

	return PlaceResult{X: x, Y: y, Index: index, Cell: cell, Entry: entry}, nil
}

// SetCooldown changes the cooldown duration. Only the administrator may
// call it; the new duration takes effect immediately, including for
// actors whose previous action is still cooling down.
func (l *Ledger) SetCooldown(ctx context.Context, seconds uint64, requestor string, now uint64) (CooldownUpdate, error) {
	requestor = strings.TrimSpace(requestor)
	if requestor == "" {
		return CooldownUpdate{}, ErrActorMissing
	}
	if requestor != l.admin {
		return CooldownUpdate{}, ErrNotAuthorized
	}

	payload, err := json.Marshal(event.CooldownUpdatedPayload{
		OldSeconds: l.cooldownSeconds,
		NewSeconds: seconds,
		Requestor:  requestor,
	})
	if err != nil {
		return CooldownUpdate{}, apperrors.Wrap(apperrors.CodeInternal, "encode cooldown payload", err)
	}

	entry, err := l.seal(ctx, event.Entry{
		At:          now,
		Type:        event.TypeCooldownUpdated,
		Actor:       requestor,
		PayloadJSON: payload,
	})
	if err != nil {
		return CooldownUpdate{}, err
	}
	if err := l.record(ctx, entry); err != nil {
		return CooldownUpdate{}, err
	}

	old := l.cooldownSeconds
	l.cooldownSeconds = seconds
	l.advance(entry)

	return CooldownUpdate{OldSeconds: old, NewSeconds: seconds, Entry: entry}, nil
}

// State exports the full ledger state as a deep copy.
func (l *Ledger) State() State {
	cells := make([]Cell, len(l.cells))
	copy(cells, l.cells)

	cooldowns := make(map[string]uint64, len(l.cooldowns))
	for actor, last := range l.cooldowns {
		cooldowns[actor] = last
	}

	snapshots := make([]Snapshot, len(l.snapshots))
	for i, snap := range l.snapshots {
		snapshots[i] = cloneSnapshot(snap)
	}

	collectibles := make([]Collectible, 0, len(l.collectibles))
	for token := uint64(1); token <= uint64(len(l.collectibles)); token++ {
		collectibles = append(collectibles, l.collectibles[token])
	}

	return State{
		Cells:           cells,
		Cooldowns:       cooldowns,
		CooldownSeconds: l.cooldownSeconds,
		MintPrice:       l.mintPrice,
		Balance:         l.balance,
		Snapshots:       snapshots,
		Collectibles:    collectibles,
		LastEntrySeq:    l.lastSeq,
		LastChainHash:   l.lastChainHash,
	}
}

// PlaceResult reports a successful cell placement.
type PlaceResult struct {
	// X and Y locate the written cell.
	X int
	Y int
	// Index is the linear row-major position of the cell.
	Index int
	// Cell is the cell after the write.
	Cell Cell
	// Entry is the sealed journal entry.
	Entry event.Entry
}

// CooldownUpdate reports a successful cooldown change.
type CooldownUpdate struct {
	// OldSeconds is the duration before the change.
	OldSeconds uint64
	// NewSeconds is the duration after the change.
	NewSeconds uint64
	// Entry is the sealed journal entry.
	Entry event.Entry
}

func (l *Ledger) checkCoordinates(x, y int) error {
	if x < 0 || x >= l.width {
		return apperrors.WithMetadata(apperrors.CodeCoordinateOutOfRange,
			"coordinate is outside the canvas", map[string]string{
				"axis":  "x",
				"value": strconv.Itoa(x),
				"max":   strconv.Itoa(l.width - 1),
			})
	}
	if y < 0 || y >= l.height {
		return apperrors.WithMetadata(apperrors.CodeCoordinateOutOfRange,
			"coordinate is outside the canvas", map[string]string{
				"axis":  "y",
				"value": strconv.Itoa(y),
				"max":   strconv.Itoa(l.height - 1),
			})
	}
	return nil
}

func (l *Ledger) remaining(actor string, now uint64) uint64 {
	last, ok := l.cooldowns[actor]
	if !ok || l.cooldownSeconds == 0 {
		return 0
	}
	if now < last {
		// The caller's clock sits before the recorded action. Saturate
		// instead of wrapping.
		gap := last - now
		if gap > math.MaxUint64-l.cooldownSeconds {
			return math.MaxUint64
		}
		return gap + l.cooldownSeconds
	}
	elapsed := now - last
	if elapsed >= l.cooldownSeconds {
		return 0
	}
	return l.cooldownSeconds - elapsed
}

func (l *Ledger) values() []uint8 {
	out := make([]uint8, len(l.cells))
	for i, cell := range l.cells {
		out[i] = cell.Value
	}
	return out
}

// seal normalizes a draft entry and assigns the next sequence and chain
// hashes. The ledger's own counters move only in advance, after the
// journal accepted the entry.
func (l *Ledger) seal(ctx context.Context, draft event.Entry) (event.Entry, error) {
	draft.RequestID = requestctx.RequestIDFromContext(ctx)
	normalized, err := event.NormalizeDraft(draft)
	if err != nil {
		return event.Entry{}, apperrors.Wrap(apperrors.CodeInternal, "normalize journal entry", err)
	}
	sealed, err := event.Seal(normalized, l.lastSeq+1, l.lastChainHash)
	if err != nil {
		return event.Entry{}, apperrors.Wrap(apperrors.CodeInternal, "seal journal entry", err)
	}
	return sealed, nil
}

func (l *Ledger) record(ctx context.Context, entry event.Entry) error {
	if l.journal == nil {
		return nil
	}
	if err := l.journal.Record(ctx, entry); err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "record journal entry", err)
	}
	return nil
}

func (l *Ledger) advance(entry event.Entry) {
	l.lastSeq = entry.Seq
	l.lastChainHash = entry.ChainHash
}
