package http

import "net/http"

func (h *handler) collectible(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathUint64(r, "tokenId")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.canvas.Collectible(tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]collectibleJSON{"collectible": toCollectibleJSON(c)})
}

type statsResponse struct {
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	PaletteSize     int    `json:"paletteSize"`
	CooldownSeconds uint64 `json:"cooldownSeconds"`
	MintPrice       uint64 `json:"mintPrice"`
	Admin           string `json:"admin"`
	Snapshots       int    `json:"snapshots"`
	Collectibles    int    `json:"collectibles"`
	TreasuryBalance uint64 `json:"treasuryBalance"`
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	cfg, snapshots, collectibles, balance := h.canvas.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		Width:           cfg.Width,
		Height:          cfg.Height,
		PaletteSize:     cfg.PaletteSize,
		CooldownSeconds: cfg.CooldownSeconds,
		MintPrice:       cfg.MintPrice,
		Admin:           cfg.Admin,
		Snapshots:       snapshots,
		Collectibles:    collectibles,
		TreasuryBalance: balance,
	})
}
