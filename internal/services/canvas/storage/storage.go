// Package storage defines persistence contracts for canvas service state.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyInitialized indicates a store that already holds a ledger.
	ErrAlreadyInitialized = errors.New("store is already initialized")
	// ErrSeqConflict indicates an entry whose sequence does not extend
	// the stored journal.
	ErrSeqConflict = errors.New("entry sequence does not extend the journal")
)

// PersistedLedger is everything needed to rebuild a ledger at boot.
type PersistedLedger struct {
	// Config holds the settings the ledger was initialized with. Width,
	// height, palette size, and administrator are fixed for the life of
	// the store; cooldown and mint price reflect the current values.
	Config canvas.Config
	// State is the full current ledger state.
	State canvas.State
}

// LedgerStore persists canvas ledger state and its journal.
//
// Record applies a sealed journal entry and its state delta in one
// atomic step; a failure leaves neither behind. The remaining methods
// serve boot and read paths.
type LedgerStore interface {
	event.Journal

	// InitState seeds an empty ledger from a configuration. It returns
	// ErrAlreadyInitialized when the store holds one.
	InitState(ctx context.Context, cfg canvas.Config) error

	// LoadState returns the persisted ledger, or ErrNotFound when
	// InitState never ran.
	LoadState(ctx context.Context) (PersistedLedger, error)

	// ListEntries returns journal entries with sequence greater than
	// afterSeq, ascending, at most limit.
	ListEntries(ctx context.Context, afterSeq uint64, limit int) ([]event.Entry, error)

	// VerifyEntries recomputes every entry hash and chain link and
	// fails on the first break.
	VerifyEntries(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
