package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/platform/id"
	"github.com/louisbranch/pixelfield/internal/platform/requestctx"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

// Canvas is the surface the transport needs from the canvas service. It is
// satisfied by *app.Service.
type Canvas interface {
	Grid() (canvas.Config, []uint8)
	GridCells() (canvas.Config, []canvas.Cell)
	CellAt(x, y int) (canvas.Cell, error)
	CellsAt(indices []int) ([]canvas.Cell, error)
	ContentHash() string
	CooldownStatus(actor string) (cooldownSeconds, remainingSeconds uint64)
	Stats() (cfg canvas.Config, snapshots, collectibles int, balance uint64)
	Snapshot(id uint64) (canvas.Snapshot, error)
	Snapshots(creator string, afterID uint64, limit int) []canvas.Snapshot
	SnapshotImage(ctx context.Context, id uint64) ([]byte, error)
	Collectible(tokenID uint64) (canvas.Collectible, error)
	Entries(ctx context.Context, afterSeq uint64, limit int) ([]event.Entry, error)

	PlaceCell(ctx context.Context, x, y, value int, actor string) (canvas.PlaceResult, error)
	SetCooldown(ctx context.Context, seconds uint64, actor string) (canvas.CooldownUpdate, error)
	CreateSnapshot(ctx context.Context, actor string) (canvas.SnapshotResult, error)
	ComposeSnapshot(ctx context.Context, actor string, values []uint8) (canvas.SnapshotResult, error)
	Mint(ctx context.Context, snapshotID, payment uint64, actor string) (canvas.MintResult, error)
	SetMintPrice(ctx context.Context, price uint64, actor string) (canvas.PriceUpdate, error)
	Withdraw(ctx context.Context, actor string) (canvas.WithdrawResult, error)
}

// Config wires the transport. Canvas is required; the rest is optional and
// absent pieces simply leave their routes unmounted.
type Config struct {
	Canvas Canvas
	// Grants verifies painter grants on the Authorization header. When nil
	// the handler runs in development mode and trusts the X-Canvas-Actor
	// header instead.
	Grants *GrantVerifier
	// LiveFeed serves GET /v1/events/live when set.
	LiveFeed http.Handler
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

type handler struct {
	canvas Canvas
	grants *GrantVerifier
}

// NewHandler builds the canvas HTTP routes.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Canvas == nil {
		return nil, fmt.Errorf("canvas handler: canvas service is required")
	}
	h := &handler{canvas: cfg.Canvas, grants: cfg.Grants}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("POST /v1/cells", h.placeCell)
	mux.HandleFunc("GET /v1/cells", h.cells)
	mux.HandleFunc("GET /v1/cells/{x}/{y}", h.cellAt)
	mux.HandleFunc("GET /v1/grid", h.grid)
	mux.HandleFunc("GET /v1/grid/cells", h.gridCells)
	mux.HandleFunc("GET /v1/grid/hash", h.gridHash)
	mux.HandleFunc("GET /v1/cooldown", h.cooldown)

	mux.HandleFunc("POST /v1/snapshots", h.createSnapshot)
	mux.HandleFunc("POST /v1/snapshots/composed", h.composeSnapshot)
	mux.HandleFunc("GET /v1/snapshots", h.listSnapshots)
	mux.HandleFunc("GET /v1/snapshots/{id}", h.snapshot)
	mux.HandleFunc("GET /v1/snapshots/{id}/image", h.snapshotImage)
	mux.HandleFunc("POST /v1/snapshots/{id}/mint", h.mint)

	mux.HandleFunc("GET /v1/collectibles/{tokenId}", h.collectible)
	mux.HandleFunc("GET /v1/stats", h.stats)

	mux.HandleFunc("PUT /v1/admin/cooldown", h.setCooldown)
	mux.HandleFunc("PUT /v1/admin/mint-price", h.setMintPrice)
	mux.HandleFunc("POST /v1/admin/withdraw", h.withdraw)

	mux.HandleFunc("GET /v1/events", h.events)
	if cfg.LiveFeed != nil {
		mux.Handle("GET /v1/events/live", cfg.LiveFeed)
	}

	return h.resolve(observe(mux)), nil
}

// resolve tags every request with a request ID and the acting painter before
// it reaches a route. A malformed or unverifiable grant stops the request
// here; a missing one does not, since most reads are anonymous.
func (h *handler) resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID, _ = id.NewID()
		}
		ctx := requestctx.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		if auth := r.Header.Get("Authorization"); auth != "" {
			grant, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				writeError(w, apperrors.New(apperrors.CodeGrantInvalid, "authorization header is not a bearer grant"))
				return
			}
			if h.grants == nil {
				writeError(w, apperrors.New(apperrors.CodeGrantInvalid, "painter grants are not configured"))
				return
			}
			actor, err := h.grants.Verify(strings.TrimSpace(grant))
			if err != nil {
				writeError(w, err)
				return
			}
			ctx = requestctx.WithActor(ctx, actor)
		} else if h.grants == nil {
			if actor := r.Header.Get("X-Canvas-Actor"); actor != "" {
				ctx = requestctx.WithActor(ctx, actor)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("canvas api: encode response: %v", err)
	}
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.CodeInternal, "internal error", err)
	}
	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("canvas api: %v", err)
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:     string(appErr.Code),
		Message:  appErr.Message,
		Metadata: appErr.Metadata,
	}})
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "decode request body", err)
	}
	return nil
}

// maxBodyBytes bounds request bodies. Composed snapshot payloads dominate:
// the largest grid is 1<<22 values, well under this as a JSON array.
const maxBodyBytes = 32 << 20
