package http

import (
	"log"
	"net/http"
	"strconv"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/platform/requestctx"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type snapshotJSON struct {
	ID          uint64 `json:"id"`
	ContentHash string `json:"contentHash"`
	Creator     string `json:"creator"`
	ImageRef    string `json:"imageRef,omitempty"`
	Ordinal     uint64 `json:"ordinal"`
	CreatedAt   uint64 `json:"createdAt"`
	Composed    bool   `json:"composed"`
	// Payload is the composed value payload, base64-encoded. Empty for
	// live captures.
	Payload []byte `json:"payload,omitempty"`
}

func toSnapshotJSON(s canvas.Snapshot) snapshotJSON {
	return snapshotJSON{
		ID:          s.ID,
		ContentHash: s.ContentHash,
		Creator:     s.Creator,
		ImageRef:    s.ImageRef,
		Ordinal:     s.Ordinal,
		CreatedAt:   s.CreatedAt,
		Composed:    s.Composed,
		Payload:     s.Payload,
	}
}

type snapshotResponse struct {
	Snapshot snapshotJSON `json:"snapshot"`
	Seq      uint64       `json:"seq,omitempty"`
}

func (h *handler) createSnapshot(w http.ResponseWriter, r *http.Request) {
	actor := requestctx.ActorFromContext(r.Context())
	result, err := h.canvas.CreateSnapshot(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotResponse{
		Snapshot: toSnapshotJSON(result.Snapshot),
		Seq:      result.Entry.Seq,
	})
}

type composeSnapshotRequest struct {
	Values []int `json:"values"`
}

func (h *handler) composeSnapshot(w http.ResponseWriter, r *http.Request) {
	var req composeSnapshotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	values := make([]uint8, len(req.Values))
	for i, v := range req.Values {
		if v < 0 || v > 0xFF {
			writeError(w, apperrors.WithMetadata(apperrors.CodeInvalidValue,
				"composed value is out of range", map[string]string{
					"index": strconv.Itoa(i),
					"value": strconv.Itoa(v),
				}))
			return
		}
		values[i] = uint8(v)
	}
	actor := requestctx.ActorFromContext(r.Context())
	result, err := h.canvas.ComposeSnapshot(r.Context(), actor, values)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotResponse{
		Snapshot: toSnapshotJSON(result.Snapshot),
		Seq:      result.Entry.Seq,
	})
}

type snapshotListResponse struct {
	Snapshots     []snapshotJSON `json:"snapshots"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

func (h *handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	creator := query.Get("creator")

	pageSize := defaultPageSize
	if raw := query.Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "pageSize must be a positive integer"))
			return
		}
		pageSize = min(parsed, maxPageSize)
	}

	var afterID uint64
	if raw := query.Get("pageToken"); raw != "" {
		token, err := decodePageToken(raw, creator)
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "decode page token", err))
			return
		}
		afterID = token.AfterID
	}

	snapshots := h.canvas.Snapshots(creator, afterID, pageSize)
	out := make([]snapshotJSON, len(snapshots))
	for i, s := range snapshots {
		out[i] = toSnapshotJSON(s)
	}

	resp := snapshotListResponse{Snapshots: out}
	if len(snapshots) == pageSize {
		token, err := encodePageToken(pageToken{
			AfterID:    snapshots[len(snapshots)-1].ID,
			FilterHash: hashFilter(creator),
		})
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInternal, "encode page token", err))
			return
		}
		resp.NextPageToken = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := h.canvas.Snapshot(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: toSnapshotJSON(snap)})
}

func (h *handler) snapshotImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	png, err := h.canvas.SnapshotImage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if _, err := w.Write(png); err != nil {
		log.Printf("canvas api: write snapshot image: %v", err)
	}
}

type mintRequest struct {
	Payment uint64 `json:"payment"`
}

type collectibleJSON struct {
	TokenID    uint64 `json:"tokenId"`
	SnapshotID uint64 `json:"snapshotId"`
	Owner      string `json:"owner"`
	Paid       uint64 `json:"paid"`
	MintedAt   uint64 `json:"mintedAt"`
}

func toCollectibleJSON(c canvas.Collectible) collectibleJSON {
	return collectibleJSON{
		TokenID:    c.TokenID,
		SnapshotID: c.SnapshotID,
		Owner:      c.Owner,
		Paid:       c.Paid,
		MintedAt:   c.MintedAt,
	}
}

type mintResponse struct {
	Collectible   collectibleJSON `json:"collectible"`
	AlreadyMinted bool            `json:"alreadyMinted,omitempty"`
	Seq           uint64          `json:"seq,omitempty"`
}

func (h *handler) mint(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor := requestctx.ActorFromContext(r.Context())
	result, err := h.canvas.Mint(r.Context(), id, req.Payment, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyMinted {
		status = http.StatusOK
	}
	writeJSON(w, status, mintResponse{
		Collectible:   toCollectibleJSON(result.Collectible),
		AlreadyMinted: result.AlreadyMinted,
		Seq:           result.Entry.Seq,
	})
}
