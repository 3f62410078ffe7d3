package canvas

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
)

// SnapshotResult reports a successful snapshot registration.
type SnapshotResult struct {
	// Snapshot is the registered snapshot.
	Snapshot Snapshot
	// Values holds the captured cell values, for rendering.
	Values []uint8
	// Entry is the sealed journal entry.
	Entry event.Entry
}

// CreateSnapshot captures the live grid into a new snapshot. The image
// reference is required: a live capture carries no payload, so the
// reference is the only way back to its pixels. The content hash must
// not already be registered; snapshotting unchanged content is a
// conflict, not a new snapshot.
func (l *Ledger) CreateSnapshot(ctx context.Context, creator, imageRef string, now uint64) (SnapshotResult, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return SnapshotResult{}, ErrActorMissing
	}
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return SnapshotResult{}, ErrInvalidImageReference
	}

	values := l.values()
	return l.registerSnapshot(ctx, creator, imageRef, values, false, now)
}

// ComposeSnapshot registers a snapshot from an explicit payload instead
// of the live grid. The payload must cover every cell and stay within
// the palette; the grid itself is not touched. The payload is stored
// with the snapshot, so the image reference may be empty.
func (l *Ledger) ComposeSnapshot(ctx context.Context, creator string, payload []uint8, imageRef string, now uint64) (SnapshotResult, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return SnapshotResult{}, ErrActorMissing
	}
	imageRef = strings.TrimSpace(imageRef)
	if len(payload) != len(l.cells) {
		return SnapshotResult{}, apperrors.WithMetadata(apperrors.CodeInvalidPayloadLength,
			"payload length must equal the canvas cell count", map[string]string{
				"length": strconv.Itoa(len(payload)),
				"cells":  strconv.Itoa(len(l.cells)),
			})
	}
	for i, value := range payload {
		if int(value) >= l.paletteSize {
			return SnapshotResult{}, apperrors.WithMetadata(apperrors.CodeInvalidValue,
				"payload value is outside the palette", map[string]string{
					"index":        strconv.Itoa(i),
					"value":        strconv.Itoa(int(value)),
					"palette_size": strconv.Itoa(l.paletteSize),
				})
		}
	}

	values := make([]uint8, len(payload))
	copy(values, payload)
	return l.registerSnapshot(ctx, creator, imageRef, values, true, now)
}

// Snapshot returns a snapshot by ID.
func (l *Ledger) Snapshot(id uint64) (Snapshot, error) {
	if id == 0 || id > uint64(len(l.snapshots)) {
		return Snapshot{}, apperrors.WithMetadata(apperrors.CodeSnapshotNotFound,
			"snapshot does not exist", map[string]string{
				"snapshot_id": strconv.FormatUint(id, 10),
			})
	}
	return cloneSnapshot(l.snapshots[id-1]), nil
}

// SnapshotByHash returns the snapshot registered under a content hash.
func (l *Ledger) SnapshotByHash(hash string) (Snapshot, bool) {
	id, ok := l.hashIndex[strings.TrimSpace(hash)]
	if !ok {
		return Snapshot{}, false
	}
	return cloneSnapshot(l.snapshots[id-1]), true
}

// Snapshots returns every snapshot ordered by ID.
func (l *Ledger) Snapshots() []Snapshot {
	out := make([]Snapshot, len(l.snapshots))
	for i, snap := range l.snapshots {
		out[i] = cloneSnapshot(snap)
	}
	return out
}

// SnapshotsByCreator returns a creator's snapshots in creation order.
func (l *Ledger) SnapshotsByCreator(creator string) []Snapshot {
	ids := l.creatorIndex[strings.TrimSpace(creator)]
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneSnapshot(l.snapshots[id-1]))
	}
	return out
}

// SnapshotCount returns the number of registered snapshots.
func (l *Ledger) SnapshotCount() int {
	return len(l.snapshots)
}

func (l *Ledger) registerSnapshot(ctx context.Context, creator, imageRef string, values []uint8, composed bool, now uint64) (SnapshotResult, error) {
	hash := HashValues(values)
	if existing, ok := l.hashIndex[hash]; ok {
		return SnapshotResult{}, apperrors.WithMetadata(apperrors.CodeDuplicateSnapshot,
			"canvas content is already snapshotted", map[string]string{
				"snapshot_id":  strconv.FormatUint(existing, 10),
				"content_hash": hash,
			})
	}

	id := uint64(len(l.snapshots)) + 1
	seq := l.lastSeq + 1
	snap := Snapshot{
		ID:          id,
		ContentHash: hash,
		Creator:     creator,
		ImageRef:    imageRef,
		Ordinal:     seq,
		CreatedAt:   now,
		Composed:    composed,
	}

	entryType := event.TypeSnapshotCreated
	var entryPayload []uint8
	if composed {
		entryType = event.TypeSnapshotComposed
		stored := make([]uint8, len(values))
		copy(stored, values)
		snap.Payload = stored
		entryPayload = stored
	}
	payload, err := json.Marshal(event.SnapshotRegisteredPayload{
		SnapshotID:  id,
		ContentHash: hash,
		Creator:     creator,
		ImageRef:    imageRef,
		Ordinal:     seq,
		At:          now,
		Composed:    composed,
		Payload:     entryPayload,
	})
	if err != nil {
		return SnapshotResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode snapshot payload", err)
	}

	entry, err := l.seal(ctx, event.Entry{
		At:          now,
		Type:        entryType,
		Actor:       creator,
		PayloadJSON: payload,
	})
	if err != nil {
		return SnapshotResult{}, err
	}
	if err := l.record(ctx, entry); err != nil {
		return SnapshotResult{}, err
	}

	l.snapshots = append(l.snapshots, snap)
	l.hashIndex[hash] = id
	l.creatorIndex[creator] = append(l.creatorIndex[creator], id)
	l.advance(entry)

	return SnapshotResult{Snapshot: cloneSnapshot(snap), Values: values, Entry: entry}, nil
}

// cloneSnapshot detaches the payload slice so callers never alias the
// registry's stored copy.
func cloneSnapshot(snap Snapshot) Snapshot {
	if snap.Payload != nil {
		payload := make([]uint8, len(snap.Payload))
		copy(payload, snap.Payload)
		snap.Payload = payload
	}
	return snap
}
