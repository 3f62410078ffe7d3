package storage

import (
	"fmt"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

// ChainVerifier walks a journal in sequence order and checks every
// link: dense sequences, entry hashes that match their content, and
// chain hashes that bind each entry to its predecessor. The zero value
// starts at the beginning of the journal.
type ChainVerifier struct {
	seq   uint64
	chain string
}

// Check verifies the next entry and advances the verifier past it.
func (v *ChainVerifier) Check(entry event.Entry) error {
	if entry.Seq != v.seq+1 {
		return fmt.Errorf("entry %d: expected sequence %d", entry.Seq, v.seq+1)
	}
	if entry.PrevHash != v.chain {
		return fmt.Errorf("entry %d: previous chain hash mismatch", entry.Seq)
	}

	hash, err := event.EntryHash(entry)
	if err != nil {
		return fmt.Errorf("entry %d: %w", entry.Seq, err)
	}
	if hash != entry.Hash {
		return fmt.Errorf("entry %d: hash mismatch", entry.Seq)
	}

	chain, err := event.ChainHash(entry, v.chain)
	if err != nil {
		return fmt.Errorf("entry %d: %w", entry.Seq, err)
	}
	if chain != entry.ChainHash {
		return fmt.Errorf("entry %d: chain hash mismatch", entry.Seq)
	}

	v.seq = entry.Seq
	v.chain = entry.ChainHash
	return nil
}

// Seq returns the sequence of the last verified entry.
func (v *ChainVerifier) Seq() uint64 { return v.seq }
