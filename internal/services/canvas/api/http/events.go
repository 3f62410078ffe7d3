package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// entryJSON is the journal entry wire form. Entry envelopes keep snake_case
// keys to match the payloads the domain seals into them.
type entryJSON struct {
	Seq       uint64          `json:"seq"`
	Hash      string          `json:"hash"`
	PrevHash  string          `json:"prev_hash,omitempty"`
	ChainHash string          `json:"chain_hash"`
	At        uint64          `json:"at"`
	Type      string          `json:"type"`
	Actor     string          `json:"actor"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func toEntryJSON(e event.Entry) entryJSON {
	return entryJSON{
		Seq:       e.Seq,
		Hash:      e.Hash,
		PrevHash:  e.PrevHash,
		ChainHash: e.ChainHash,
		At:        e.At,
		Type:      string(e.Type),
		Actor:     e.Actor,
		RequestID: e.RequestID,
		Payload:   json.RawMessage(e.PayloadJSON),
	}
}

type eventsResponse struct {
	Entries []entryJSON `json:"entries"`
}

// events serves journal reads: GET /v1/events?afterSeq=0&limit=100.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var afterSeq uint64
	if raw := query.Get("afterSeq"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "parse afterSeq", err))
			return
		}
		afterSeq = parsed
	}

	limit := defaultEventLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxEventLimit)
	}

	entries, err := h.canvas.Entries(r.Context(), afterSeq, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entryJSON, len(entries))
	for i, entry := range entries {
		out[i] = toEntryJSON(entry)
	}
	writeJSON(w, http.StatusOK, eventsResponse{Entries: out})
}
