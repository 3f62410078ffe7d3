package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeDraft validates and normalizes an entry before the ledger
// assigns sequencing.
func NormalizeDraft(entry Entry) (Entry, error) {
	if entry.Seq != 0 {
		return Entry{}, fmt.Errorf("entry sequence must be assigned by the ledger")
	}
	if strings.TrimSpace(entry.Hash) != "" {
		return Entry{}, fmt.Errorf("entry hash must be assigned by the ledger")
	}
	if strings.TrimSpace(entry.PrevHash) != "" || strings.TrimSpace(entry.ChainHash) != "" {
		return Entry{}, fmt.Errorf("entry chain hashes must be assigned by the ledger")
	}

	entry.Type = Type(strings.TrimSpace(string(entry.Type)))
	if !entry.Type.IsValid() {
		return Entry{}, fmt.Errorf("entry type is required")
	}

	entry.Actor = strings.TrimSpace(entry.Actor)
	if entry.Actor == "" {
		return Entry{}, fmt.Errorf("entry actor is required")
	}

	entry.RequestID = strings.TrimSpace(entry.RequestID)

	if len(entry.PayloadJSON) == 0 {
		entry.PayloadJSON = []byte("{}")
	}
	if !json.Valid(entry.PayloadJSON) {
		return Entry{}, fmt.Errorf("payload json must be valid JSON")
	}

	return entry, nil
}
