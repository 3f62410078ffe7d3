package http

import (
	"net/http"

	"github.com/louisbranch/pixelfield/internal/platform/requestctx"
)

type setCooldownRequest struct {
	Seconds uint64 `json:"seconds"`
}

type setCooldownResponse struct {
	OldSeconds uint64 `json:"oldSeconds"`
	NewSeconds uint64 `json:"newSeconds"`
	Seq        uint64 `json:"seq"`
}

func (h *handler) setCooldown(w http.ResponseWriter, r *http.Request) {
	var req setCooldownRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor := requestctx.ActorFromContext(r.Context())
	update, err := h.canvas.SetCooldown(r.Context(), req.Seconds, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setCooldownResponse{
		OldSeconds: update.OldSeconds,
		NewSeconds: update.NewSeconds,
		Seq:        update.Entry.Seq,
	})
}

type setMintPriceRequest struct {
	Price uint64 `json:"price"`
}

type setMintPriceResponse struct {
	OldPrice uint64 `json:"oldPrice"`
	NewPrice uint64 `json:"newPrice"`
	Seq      uint64 `json:"seq"`
}

func (h *handler) setMintPrice(w http.ResponseWriter, r *http.Request) {
	var req setMintPriceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor := requestctx.ActorFromContext(r.Context())
	update, err := h.canvas.SetMintPrice(r.Context(), req.Price, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setMintPriceResponse{
		OldPrice: update.OldPrice,
		NewPrice: update.NewPrice,
		Seq:      update.Entry.Seq,
	})
}

type withdrawResponse struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	Seq       uint64 `json:"seq"`
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	actor := requestctx.ActorFromContext(r.Context())
	result, err := h.canvas.Withdraw(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{
		Amount:    result.Amount,
		Recipient: result.Recipient,
		Seq:       result.Entry.Seq,
	})
}
