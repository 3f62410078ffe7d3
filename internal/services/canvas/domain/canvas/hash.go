package canvas

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashValues computes the canonical content hash of canvas values: the
// hex-encoded SHA-256 of the raw value bytes in row-major order.
//
// Only values participate. Provenance (writers, timestamps) never enters
// the hash, so two canvases with identical pixels hash identically no
// matter how they were painted.
func HashValues(values []uint8) string {
	sum := sha256.Sum256(values)
	return hex.EncodeToString(sum[:])
}
