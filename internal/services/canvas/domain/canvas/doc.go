// Package canvas provides the shared-canvas ledger and its supporting areas.
//
// The ledger is the single authority for canvas state: the pixel grid,
// per-actor cooldowns, the snapshot registry, minted collectibles, and
// the accumulated treasury balance. Every successful mutation produces
// exactly one journal entry; a failed mutation leaves the state exactly
// as it was.
//
// The package organizes canvas data by change frequency:
//
// # Configuration
//
// Settings fixed at creation: grid dimensions, palette size, and the
// administrator account. The cooldown duration and mint price start from
// configuration but can be changed by the administrator at runtime.
//
// # Grid (Hot Layer)
//
// The W×H cell array written by painters. Cells carry provenance (last
// writer, last write time) alongside the palette value, but only the
// values participate in the canonical content hash.
//
// # Registry (Provenance Layer)
//
// Snapshots capture canvas content under a unique content hash and bind
// it to a creator and an image reference. Collectibles bind snapshots to
// sequential tokens after payment. Neither is ever deleted.
//
// # Time
//
// The ledger never reads a clock. Every operation that involves time
// takes the current reading from the caller, which keeps replays and
// tests deterministic.
//
// Subpackage:
//   - canvas/event: journal entry types and hash chaining
package canvas
