package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/platform/metrics"
	"github.com/louisbranch/pixelfield/internal/services/canvas/blob"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/palette"
	"github.com/louisbranch/pixelfield/internal/services/canvas/render"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage"
)

const defaultRenderScale = 8

// ServiceConfig bundles the collaborators a canvas Service needs. Store is
// required; everything else has a usable default. A nil Blobs disables
// live-grid snapshots, and a nil Payout rejects withdrawals of a positive
// balance.
type ServiceConfig struct {
	Canvas  canvas.Config
	Store   storage.LedgerStore
	Blobs   *blob.Store
	Payout  canvas.PayoutSink
	Palette palette.Palette
	// RenderScale is the pixels-per-cell factor for snapshot images.
	// Zero picks the largest factor up to 8 that keeps the image within
	// the render bounds.
	RenderScale int
	Metrics     *metrics.Canvas
	Now         func() time.Time
}

// Service owns a single canvas ledger and serializes every mutation
// through one writer lock. Reads take the lock shared, so they run
// concurrently with each other and never observe a torn write.
type Service struct {
	mu     sync.RWMutex
	ledger *canvas.Ledger

	store   storage.LedgerStore
	blobs   *blob.Store
	palette palette.Palette
	scale   int
	metrics *metrics.Canvas
	feed    *feedHub
	now     func() time.Time
}

// NewService boots a Service from its store: a fresh store is initialized
// with the supplied canvas configuration, an existing one restores the
// persisted ledger. The static fields of an existing store must match the
// supplied configuration; a mismatch means the operator pointed the
// service at the wrong database, and refusing to start beats silently
// reinterpreting the journal.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("canvas store is required")
	}
	normalized, err := canvas.NormalizeConfig(cfg.Canvas)
	if err != nil {
		return nil, fmt.Errorf("canvas config: %w", err)
	}

	pal := cfg.Palette
	if pal == nil {
		pal = palette.Default()
	}
	if err := pal.Validate(); err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	if len(pal) < normalized.PaletteSize {
		return nil, fmt.Errorf("palette has %d colors, canvas needs %d", len(pal), normalized.PaletteSize)
	}

	scale := cfg.RenderScale
	if scale == 0 {
		scale = autoScale(normalized.Width, normalized.Height)
	}
	if scale < 1 || scale > render.MaxScale ||
		normalized.Width*scale > render.MaxImageSide || normalized.Height*scale > render.MaxImageSide {
		return nil, fmt.Errorf("render scale %d does not fit a %dx%d canvas", scale, normalized.Width, normalized.Height)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ledger, err := bootLedger(ctx, normalized, cfg.Store, cfg.Payout)
	if err != nil {
		return nil, err
	}

	return &Service{
		ledger:  ledger,
		store:   cfg.Store,
		blobs:   cfg.Blobs,
		palette: pal,
		scale:   scale,
		metrics: cfg.Metrics,
		feed:    newFeedHub(cfg.Metrics, ledger.LastEntrySeq()),
		now:     now,
	}, nil
}

func bootLedger(ctx context.Context, cfg canvas.Config, store storage.LedgerStore, payout canvas.PayoutSink) (*canvas.Ledger, error) {
	persisted, err := store.LoadState(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		if err := store.InitState(ctx, cfg); err != nil {
			return nil, fmt.Errorf("initialize canvas store: %w", err)
		}
		ledger, err := canvas.New(cfg, store, payout)
		if err != nil {
			return nil, err
		}
		log.Printf("canvas: initialized %dx%d canvas, palette %d", cfg.Width, cfg.Height, cfg.PaletteSize)
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load canvas store: %w", err)
	}

	stored := persisted.Config
	if stored.Width != cfg.Width || stored.Height != cfg.Height ||
		stored.PaletteSize != cfg.PaletteSize || stored.Admin != cfg.Admin {
		return nil, fmt.Errorf("store holds a %dx%d canvas (palette %d, admin %q), configuration wants %dx%d (palette %d, admin %q)",
			stored.Width, stored.Height, stored.PaletteSize, stored.Admin,
			cfg.Width, cfg.Height, cfg.PaletteSize, cfg.Admin)
	}

	ledger, err := canvas.Restore(stored, persisted.State, store, payout)
	if err != nil {
		return nil, fmt.Errorf("restore canvas ledger: %w", err)
	}
	log.Printf("canvas: restored %dx%d canvas at journal seq %d", stored.Width, stored.Height, ledger.LastEntrySeq())
	return ledger, nil
}

// autoScale picks the largest pixels-per-cell factor up to the default
// that keeps the rendered image within bounds. A canvas never exceeds
// MaxSide, so a factor of at least 1 always fits.
func autoScale(width, height int) int {
	scale := defaultRenderScale
	for scale > 1 && (width*scale > render.MaxImageSide || height*scale > render.MaxImageSide) {
		scale--
	}
	return scale
}

// FeedHandler returns the live journal feed websocket handler.
func (s *Service) FeedHandler() http.Handler {
	return s.feed.Handler()
}

// nowSeconds reads the injected clock as whole UTC seconds. Clock readings
// before the epoch clamp to zero so the unsigned domain time never wraps.
func (s *Service) nowSeconds() uint64 {
	unix := s.now().UTC().Unix()
	if unix < 0 {
		return 0
	}
	return uint64(unix)
}

// Grid returns the canvas configuration and every cell value in row-major
// order.
func (s *Service) Grid() (canvas.Config, []uint8) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config(), s.ledger.Values()
}

// GridCells returns the canvas configuration and every cell with its
// provenance, in row-major order.
func (s *Service) GridCells() (canvas.Config, []canvas.Cell) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config(), s.ledger.Cells()
}

// CellAt returns the cell at (x, y).
func (s *Service) CellAt(x, y int) (canvas.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Cell(x, y)
}

// CellsAt returns the cells at the given linear indices, in request order.
func (s *Service) CellsAt(indices []int) ([]canvas.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.CellsAt(indices)
}

// ContentHash returns the canonical hash of the current grid values.
func (s *Service) ContentHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.ContentHash()
}

// CooldownStatus reports the active cooldown duration and how long the
// actor still has to wait. An empty actor owes nothing.
func (s *Service) CooldownStatus(actor string) (cooldownSeconds, remainingSeconds uint64) {
	now := s.nowSeconds()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if actor == "" {
		return s.ledger.CooldownSeconds(), 0
	}
	return s.ledger.CooldownSeconds(), s.ledger.Remaining(actor, now)
}

// Stats reports the canvas configuration together with registry totals,
// read atomically.
func (s *Service) Stats() (cfg canvas.Config, snapshotCount, collectibleCount int, balance uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config(), s.ledger.SnapshotCount(), s.ledger.CollectibleCount(), s.ledger.Balance()
}

// Snapshot returns a snapshot by ID.
func (s *Service) Snapshot(id uint64) (canvas.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Snapshot(id)
}

// Snapshots returns up to limit snapshots with IDs greater than afterID,
// in ID order, optionally filtered by creator.
func (s *Service) Snapshots(creator string, afterID uint64, limit int) []canvas.Snapshot {
	if limit <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []canvas.Snapshot
	if creator != "" {
		all = s.ledger.SnapshotsByCreator(creator)
	} else {
		all = s.ledger.Snapshots()
	}
	page := make([]canvas.Snapshot, 0, limit)
	for _, snap := range all {
		if snap.ID <= afterID {
			continue
		}
		page = append(page, snap)
		if len(page) == limit {
			break
		}
	}
	return page
}

// SnapshotImage returns the rendered PNG for a snapshot from the blob
// store.
func (s *Service) SnapshotImage(ctx context.Context, id uint64) ([]byte, error) {
	s.mu.RLock()
	snap, err := s.ledger.Snapshot(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if snap.ImageRef == "" {
		return nil, apperrors.New(apperrors.CodeNotFound, "snapshot has no rendered image")
	}
	if s.blobs == nil {
		return nil, apperrors.New(apperrors.CodeUnavailable, "image store is not configured")
	}
	data, err := s.blobs.Get(ctx, snap.ImageRef)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "snapshot image is missing from the blob store", err)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "read snapshot image", err)
	}
	return data, nil
}

// Collectible returns a collectible by token ID.
func (s *Service) Collectible(tokenID uint64) (canvas.Collectible, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Collectible(tokenID)
}

// Entries returns a journal page: up to limit sealed entries with
// sequence numbers greater than afterSeq.
func (s *Service) Entries(ctx context.Context, afterSeq uint64, limit int) ([]event.Entry, error) {
	return s.store.ListEntries(ctx, afterSeq, limit)
}

// PlaceCell writes a palette value into the cell at (x, y) on behalf of
// the actor, at the service clock's current reading.
func (s *Service) PlaceCell(ctx context.Context, x, y, value int, actor string) (canvas.PlaceResult, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	result, err := s.ledger.PlaceCell(ctx, x, y, value, actor, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.PlaceResult{}, err
	}
	s.metrics.RecordCellPlaced()
	s.feed.Broadcast(result.Entry)
	return result, nil
}

// SetCooldown changes the cooldown duration on behalf of the
// administrator.
func (s *Service) SetCooldown(ctx context.Context, seconds uint64, actor string) (canvas.CooldownUpdate, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	update, err := s.ledger.SetCooldown(ctx, seconds, actor, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.CooldownUpdate{}, err
	}
	s.feed.Broadcast(update.Entry)
	return update, nil
}

// CreateSnapshot captures the live grid: the service renders the PNG,
// stores it in the blob store, and registers the snapshot under the
// image's content address. The render happens under the writer lock so
// the image always matches the registered content hash.
func (s *Service) CreateSnapshot(ctx context.Context, actor string) (canvas.SnapshotResult, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	result, err := s.createSnapshotLocked(ctx, actor, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.SnapshotResult{}, err
	}
	s.metrics.RecordSnapshotCreated()
	s.feed.Broadcast(result.Entry)
	return result, nil
}

func (s *Service) createSnapshotLocked(ctx context.Context, actor string, now uint64) (canvas.SnapshotResult, error) {
	if s.blobs == nil {
		return canvas.SnapshotResult{}, apperrors.New(apperrors.CodeUnavailable, "image store is not configured")
	}

	values := s.ledger.Values()
	// Reject duplicates before paying for a render; the ledger checks
	// again when it registers.
	if existing, ok := s.ledger.SnapshotByHash(canvas.HashValues(values)); ok {
		return canvas.SnapshotResult{}, apperrors.WithMetadata(apperrors.CodeDuplicateSnapshot,
			"canvas content is already snapshotted", map[string]string{
				"snapshot_id":  fmt.Sprintf("%d", existing.ID),
				"content_hash": existing.ContentHash,
			})
	}

	imageRef, err := s.renderToBlob(ctx, values)
	if err != nil {
		return canvas.SnapshotResult{}, err
	}
	return s.ledger.CreateSnapshot(ctx, actor, imageRef, now)
}

// ComposeSnapshot registers a snapshot from an explicit payload. When a
// blob store is configured the payload is rendered and stored like a
// live capture; without one the snapshot still registers, payload only.
func (s *Service) ComposeSnapshot(ctx context.Context, actor string, values []uint8) (canvas.SnapshotResult, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	result, err := s.composeSnapshotLocked(ctx, actor, values, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.SnapshotResult{}, err
	}
	s.metrics.RecordSnapshotCreated()
	s.feed.Broadcast(result.Entry)
	return result, nil
}

func (s *Service) composeSnapshotLocked(ctx context.Context, actor string, values []uint8, now uint64) (canvas.SnapshotResult, error) {
	imageRef := ""
	if s.blobs != nil && s.payloadRenderable(values) {
		ref, err := s.renderToBlob(ctx, values)
		if err != nil {
			return canvas.SnapshotResult{}, err
		}
		imageRef = ref
	}
	return s.ledger.ComposeSnapshot(ctx, actor, values, imageRef, now)
}

// payloadRenderable reports whether a composed payload would survive the
// ledger's own validation, so an invalid request never pays for a render
// and an orphaned blob.
func (s *Service) payloadRenderable(values []uint8) bool {
	if len(values) != s.ledger.Width()*s.ledger.Height() {
		return false
	}
	if _, dup := s.ledger.SnapshotByHash(canvas.HashValues(values)); dup {
		return false
	}
	for _, value := range values {
		if int(value) >= s.ledger.PaletteSize() {
			return false
		}
	}
	return true
}

func (s *Service) renderToBlob(ctx context.Context, values []uint8) (string, error) {
	png, err := render.PNG(values, s.ledger.Width(), s.ledger.Height(), s.palette, s.scale)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "render snapshot image", err)
	}
	ref, err := s.blobs.Put(ctx, png)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnavailable, "store snapshot image", err)
	}
	return ref, nil
}

// Mint binds a snapshot to the next collectible token on behalf of its
// creator.
func (s *Service) Mint(ctx context.Context, snapshotID, payment uint64, actor string) (canvas.MintResult, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	result, err := s.ledger.MintCollectible(ctx, snapshotID, actor, payment, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.MintResult{}, err
	}
	if !result.AlreadyMinted {
		s.metrics.RecordCollectibleMinted()
		s.feed.Broadcast(result.Entry)
	}
	return result, nil
}

// SetMintPrice changes the mint price on behalf of the administrator.
func (s *Service) SetMintPrice(ctx context.Context, price uint64, actor string) (canvas.PriceUpdate, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	update, err := s.ledger.SetMintPrice(ctx, price, actor, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.PriceUpdate{}, err
	}
	s.feed.Broadcast(update.Entry)
	return update, nil
}

// Withdraw pays the accumulated balance out through the payout sink on
// behalf of the administrator.
func (s *Service) Withdraw(ctx context.Context, actor string) (canvas.WithdrawResult, error) {
	now := s.nowSeconds()
	s.mu.Lock()
	result, err := s.ledger.Withdraw(ctx, actor, now)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordMutationFailure(failureCode(err))
		return canvas.WithdrawResult{}, err
	}
	s.feed.Broadcast(result.Entry)
	return result, nil
}

// config assembles the current configuration view. Callers hold the lock.
func (s *Service) config() canvas.Config {
	return canvas.Config{
		Width:           s.ledger.Width(),
		Height:          s.ledger.Height(),
		PaletteSize:     s.ledger.PaletteSize(),
		CooldownSeconds: s.ledger.CooldownSeconds(),
		Admin:           s.ledger.Admin(),
		MintPrice:       s.ledger.MintPrice(),
	}
}

// failureCode extracts the taxonomy code from an error for metric labels.
func failureCode(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return string(appErr.Code)
	}
	return string(apperrors.CodeUnknown)
}
