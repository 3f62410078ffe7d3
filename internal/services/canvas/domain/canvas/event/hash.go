package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// canonicalEnvelope builds the byte string hashed to identify an entry.
//
// Field ordering is defined here and nowhere else so layers cannot drift.
// Fields are length-prefixed to keep the encoding injective.
func canonicalEnvelope(entry Entry) (string, error) {
	if !entry.Type.IsValid() {
		return "", fmt.Errorf("entry type is required")
	}
	if entry.Seq == 0 {
		return "", fmt.Errorf("entry sequence is required")
	}

	fields := []string{
		strconv.FormatUint(entry.Seq, 10),
		strconv.FormatUint(entry.At, 10),
		string(entry.Type),
		entry.Actor,
		entry.RequestID,
		string(entry.PayloadJSON),
	}

	var b strings.Builder
	b.WriteString("v1")
	for _, field := range fields {
		b.WriteString("|")
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteString(":")
		b.WriteString(field)
	}
	return b.String(), nil
}

// EntryHash computes the content hash for a single entry: SHA-256 of the
// canonical envelope, truncated to 128 bits and hex encoded.
func EntryHash(entry Entry) (string, error) {
	envelope, err := canonicalEnvelope(entry)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(envelope))
	return hex.EncodeToString(sum[:16]), nil
}

// ChainHash computes the SHA-256 hash that links an entry to its
// predecessor. The entry's own hash must already be assigned; prevChain
// is empty for the first entry.
func ChainHash(entry Entry, prevChain string) (string, error) {
	if strings.TrimSpace(entry.Hash) == "" {
		return "", fmt.Errorf("entry hash is required")
	}
	sum := sha256.Sum256([]byte(prevChain + "|" + strconv.FormatUint(entry.Seq, 10) + "|" + entry.Hash))
	return hex.EncodeToString(sum[:]), nil
}

// Seal assigns sequencing and chain hashes to a normalized draft entry.
func Seal(entry Entry, seq uint64, prevChain string) (Entry, error) {
	if seq == 0 {
		return Entry{}, fmt.Errorf("sequence must start at 1")
	}
	entry.Seq = seq

	hash, err := EntryHash(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("compute entry hash: %w", err)
	}
	entry.Hash = hash

	chain, err := ChainHash(entry, prevChain)
	if err != nil {
		return Entry{}, fmt.Errorf("compute chain hash: %w", err)
	}
	entry.PrevHash = prevChain
	entry.ChainHash = chain

	return entry, nil
}
