package storage

import (
	"context"
	"testing"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

func journalOfThree(t *testing.T) *recordingJournal {
	t.Helper()
	ctx := context.Background()
	journal := &recordingJournal{}

	ledger, err := canvas.New(replayConfig(), journal, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := ledger.PlaceCell(ctx, 0, 0, 1, "alice", 10); err != nil {
		t.Fatalf("PlaceCell() error = %v", err)
	}
	if _, err := ledger.PlaceCell(ctx, 1, 0, 2, "bob", 11); err != nil {
		t.Fatalf("PlaceCell() error = %v", err)
	}
	if _, err := ledger.SetCooldown(ctx, 1, "admin", 12); err != nil {
		t.Fatalf("SetCooldown() error = %v", err)
	}
	return journal
}

func TestChainVerifierAcceptsSealedJournal(t *testing.T) {
	journal := journalOfThree(t)

	var verifier ChainVerifier
	for _, entry := range journal.entries {
		if err := verifier.Check(entry); err != nil {
			t.Fatalf("Check(seq %d) error = %v", entry.Seq, err)
		}
	}
	if verifier.Seq() != 3 {
		t.Fatalf("Seq() = %d, want 3", verifier.Seq())
	}
}

func TestChainVerifierCatchesTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(entries []event.Entry)
	}{
		{
			name: "payload edited",
			mutate: func(entries []event.Entry) {
				entries[1].PayloadJSON = []byte(`{"index":0,"x":0,"y":0,"value":7,"actor":"mallory","at":11}`)
			},
		},
		{
			name: "hash edited",
			mutate: func(entries []event.Entry) {
				entries[1].Hash = "0000000000000000"
			},
		},
		{
			name: "chain hash edited",
			mutate: func(entries []event.Entry) {
				entries[2].ChainHash = "tampered"
			},
		},
		{
			name: "entry dropped",
			mutate: func(entries []event.Entry) {
				copy(entries[1:], entries[2:])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			journal := journalOfThree(t)
			entries := append([]event.Entry(nil), journal.entries...)
			tc.mutate(entries)

			var verifier ChainVerifier
			var failed bool
			for _, entry := range entries {
				if err := verifier.Check(entry); err != nil {
					failed = true
					break
				}
			}
			if !failed {
				t.Fatal("verifier accepted a tampered journal")
			}
		})
	}
}

func TestChainVerifierRequiresEmptyFirstPrevHash(t *testing.T) {
	journal := journalOfThree(t)
	first := journal.entries[0]
	first.PrevHash = "not-empty"

	var verifier ChainVerifier
	if err := verifier.Check(first); err == nil {
		t.Fatal("verifier accepted a first entry with a previous hash")
	}
}
