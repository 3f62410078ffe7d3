// Package memory provides an in-memory canvas store for tests and
// volatile deployments. Nothing survives process exit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage"
)

// Store keeps ledger state and journal entries in memory. It applies
// the same entry deltas the durable store does, so swapping backends
// never changes behavior.
type Store struct {
	mu          sync.Mutex
	cfg         canvas.Config
	state       canvas.State
	entries     []event.Entry
	initialized bool
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Close releases nothing; it exists to satisfy storage.LedgerStore.
func (s *Store) Close() error { return nil }

// InitState seeds an empty ledger from a configuration.
func (s *Store) InitState(ctx context.Context, cfg canvas.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return storage.ErrAlreadyInitialized
	}

	normalized, err := canvas.NormalizeConfig(cfg)
	if err != nil {
		return err
	}
	s.cfg = normalized
	s.state = canvas.State{
		Cells:           make([]canvas.Cell, normalized.Width*normalized.Height),
		Cooldowns:       make(map[string]uint64),
		CooldownSeconds: normalized.CooldownSeconds,
		MintPrice:       normalized.MintPrice,
	}
	s.initialized = true
	return nil
}

// LoadState returns a deep copy of the persisted ledger.
func (s *Store) LoadState(ctx context.Context) (storage.PersistedLedger, error) {
	if err := ctx.Err(); err != nil {
		return storage.PersistedLedger{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return storage.PersistedLedger{}, storage.ErrNotFound
	}

	cfg := s.cfg
	cfg.CooldownSeconds = s.state.CooldownSeconds
	cfg.MintPrice = s.state.MintPrice
	return storage.PersistedLedger{
		Config: cfg,
		State:  cloneState(s.state),
	}, nil
}

// Record applies a sealed journal entry and its state delta.
func (s *Store) Record(ctx context.Context, entry event.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("store is not initialized")
	}
	if entry.Seq != s.state.LastEntrySeq+1 {
		return storage.ErrSeqConflict
	}

	if err := storage.ApplyEntry(&s.state, entry); err != nil {
		return err
	}
	entry.PayloadJSON = append([]byte(nil), entry.PayloadJSON...)
	s.entries = append(s.entries, entry)
	return nil
}

// ListEntries returns journal entries with sequence greater than
// afterSeq, ascending, at most limit.
func (s *Store) ListEntries(ctx context.Context, afterSeq uint64, limit int) ([]event.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]event.Entry, 0, limit)
	for _, entry := range s.entries {
		if entry.Seq <= afterSeq {
			continue
		}
		entry.PayloadJSON = append([]byte(nil), entry.PayloadJSON...)
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// VerifyEntries recomputes every entry hash and chain link.
func (s *Store) VerifyEntries(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var verifier storage.ChainVerifier
	for _, entry := range s.entries {
		if err := verifier.Check(entry); err != nil {
			return err
		}
	}
	return nil
}

func cloneState(state canvas.State) canvas.State {
	out := state
	out.Cells = append([]canvas.Cell(nil), state.Cells...)

	out.Cooldowns = make(map[string]uint64, len(state.Cooldowns))
	for actor, last := range state.Cooldowns {
		out.Cooldowns[actor] = last
	}

	out.Snapshots = make([]canvas.Snapshot, len(state.Snapshots))
	for i, snap := range state.Snapshots {
		snap.Payload = append([]uint8(nil), snap.Payload...)
		out.Snapshots[i] = snap
	}

	out.Collectibles = append([]canvas.Collectible(nil), state.Collectibles...)
	return out
}

var _ storage.LedgerStore = (*Store)(nil)
