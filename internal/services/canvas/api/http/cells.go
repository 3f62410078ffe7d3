package http

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/platform/requestctx"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
)

type cellJSON struct {
	Value       int    `json:"value"`
	LastWriter  string `json:"lastWriter,omitempty"`
	LastWriteAt uint64 `json:"lastWriteAt,omitempty"`
}

func toCellJSON(c canvas.Cell) cellJSON {
	return cellJSON{
		Value:       int(c.Value),
		LastWriter:  c.LastWriter,
		LastWriteAt: c.LastWriteAt,
	}
}

type placeCellRequest struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Value int `json:"value"`
}

type placeCellResponse struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Index int      `json:"index"`
	Cell  cellJSON `json:"cell"`
	Seq   uint64   `json:"seq"`
}

func (h *handler) placeCell(w http.ResponseWriter, r *http.Request) {
	var req placeCellRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor := requestctx.ActorFromContext(r.Context())
	result, err := h.canvas.PlaceCell(r.Context(), req.X, req.Y, req.Value, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, placeCellResponse{
		X:     result.X,
		Y:     result.Y,
		Index: result.Index,
		Cell:  toCellJSON(result.Cell),
		Seq:   result.Entry.Seq,
	})
}

type cellAtResponse struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Cell cellJSON `json:"cell"`
}

func (h *handler) cellAt(w http.ResponseWriter, r *http.Request) {
	x, err := pathInt(r, "x")
	if err != nil {
		writeError(w, err)
		return
	}
	y, err := pathInt(r, "y")
	if err != nil {
		writeError(w, err)
		return
	}
	cell, err := h.canvas.CellAt(x, y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cellAtResponse{X: x, Y: y, Cell: toCellJSON(cell)})
}

type indexedCellJSON struct {
	Index int      `json:"index"`
	Cell  cellJSON `json:"cell"`
}

type cellsResponse struct {
	Cells []indexedCellJSON `json:"cells"`
}

// cells serves batched reads: GET /v1/cells?indices=0,5,9.
func (h *handler) cells(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("indices"))
	if raw == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "indices query parameter is required"))
		return
	}
	parts := strings.Split(raw, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "parse cell index", err))
			return
		}
		indices = append(indices, idx)
	}
	found, err := h.canvas.CellsAt(indices)
	if err != nil {
		writeError(w, err)
		return
	}
	cells := make([]indexedCellJSON, len(found))
	for i, cell := range found {
		cells[i] = indexedCellJSON{Index: indices[i], Cell: toCellJSON(cell)}
	}
	writeJSON(w, http.StatusOK, cellsResponse{Cells: cells})
}

type gridResponse struct {
	Width       int   `json:"width"`
	Height      int   `json:"height"`
	PaletteSize int   `json:"paletteSize"`
	Values      []int `json:"values"`
}

func (h *handler) grid(w http.ResponseWriter, r *http.Request) {
	cfg, values := h.canvas.Grid()
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	writeJSON(w, http.StatusOK, gridResponse{
		Width:       cfg.Width,
		Height:      cfg.Height,
		PaletteSize: cfg.PaletteSize,
		Values:      out,
	})
}

type gridCellsResponse struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Cells  []cellJSON `json:"cells"`
}

func (h *handler) gridCells(w http.ResponseWriter, r *http.Request) {
	cfg, cells := h.canvas.GridCells()
	out := make([]cellJSON, len(cells))
	for i, cell := range cells {
		out[i] = toCellJSON(cell)
	}
	writeJSON(w, http.StatusOK, gridCellsResponse{
		Width:  cfg.Width,
		Height: cfg.Height,
		Cells:  out,
	})
}

type gridHashResponse struct {
	ContentHash string `json:"contentHash"`
}

func (h *handler) gridHash(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gridHashResponse{ContentHash: h.canvas.ContentHash()})
}

type cooldownResponse struct {
	Actor            string `json:"actor,omitempty"`
	CooldownSeconds  uint64 `json:"cooldownSeconds"`
	RemainingSeconds uint64 `json:"remainingSeconds"`
}

func (h *handler) cooldown(w http.ResponseWriter, r *http.Request) {
	actor := requestctx.ActorFromContext(r.Context())
	cooldown, remaining := h.canvas.CooldownStatus(actor)
	writeJSON(w, http.StatusOK, cooldownResponse{
		Actor:            actor,
		CooldownSeconds:  cooldown,
		RemainingSeconds: remaining,
	})
}

func pathInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInvalidArgument, "parse "+name+" path segment", err)
	}
	return value, nil
}

func pathUint64(r *http.Request, name string) (uint64, error) {
	value, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInvalidArgument, "parse "+name+" path segment", err)
	}
	return value, nil
}
