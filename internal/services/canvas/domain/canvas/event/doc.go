// Package event provides the entry types for the canvas event journal.
//
// Every successful mutation of the canvas ledger is recorded as exactly
// one immutable entry in an append-only journal. Entries carry a dense
// sequence number starting at 1 and are linked into a hash chain so that
// tampering with history is detectable.
//
// Entries are organized by domain:
//   - canvas.*: cell placements and cooldown configuration changes
//   - snapshot.*: snapshot registrations (live captures and compositions)
//   - collectible.*: minting and mint price changes
//   - treasury.*: balance withdrawals
//
// Each entry type has a corresponding payload struct serialized as JSON.
package event

//go:generate go run github.com/louisbranch/pixelfield/internal/tools/eventdocgen
