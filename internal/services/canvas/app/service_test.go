package server

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/services/canvas/blob"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage/memory"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func testCanvasConfig() canvas.Config {
	return canvas.Config{
		Width:       4,
		Height:      4,
		PaletteSize: 8,
		Admin:       "admin",
		MintPrice:   100,
	}
}

func testClock(seconds int64) func() time.Time {
	return func() time.Time { return time.Unix(seconds, 0).UTC() }
}

func newTestBlobs(t *testing.T) *blob.Store {
	t.Helper()
	blobs, err := blob.Open(blob.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	t.Cleanup(func() {
		if err := blobs.Close(); err != nil {
			t.Errorf("close blob store: %v", err)
		}
	})
	return blobs
}

func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	if cfg.Canvas == (canvas.Config{}) {
		cfg.Canvas = testCanvasConfig()
	}
	if cfg.Store == nil {
		cfg.Store = memory.New()
	}
	if cfg.Now == nil {
		cfg.Now = testClock(1000)
	}
	svc, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

type recordingSink struct {
	recipient string
	amount    uint64
}

func (r *recordingSink) Pay(_ context.Context, recipient string, amount uint64) error {
	r.recipient = recipient
	r.amount = amount
	return nil
}

func assertCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an application error", err)
	}
	if appErr.Code != code {
		t.Fatalf("error code = %s, want %s", appErr.Code, code)
	}
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(context.Background(), ServiceConfig{Canvas: testCanvasConfig()})
	if err == nil {
		t.Fatal("expected error for missing store")
	}
}

func TestNewServiceInitializesFreshStore(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})

	cfg, values := svc.Grid()
	if cfg.Width != 4 || cfg.Height != 4 || cfg.PaletteSize != 8 {
		t.Fatalf("grid config = %+v, want 4x4 palette 8", cfg)
	}
	if len(values) != 16 {
		t.Fatalf("len(values) = %d, want 16", len(values))
	}
	for i, v := range values {
		if v != 0 {
			t.Fatalf("values[%d] = %d, want 0", i, v)
		}
	}

	_, snapshots, collectibles, balance := svc.Stats()
	if snapshots != 0 || collectibles != 0 || balance != 0 {
		t.Fatalf("fresh stats = %d snapshots, %d collectibles, balance %d", snapshots, collectibles, balance)
	}
}

func TestNewServiceRestoresExistingStore(t *testing.T) {
	store := memory.New()
	first := newTestService(t, ServiceConfig{Store: store})

	if _, err := first.PlaceCell(context.Background(), 1, 2, 3, "alice"); err != nil {
		t.Fatalf("PlaceCell: %v", err)
	}

	second := newTestService(t, ServiceConfig{Store: store})
	cell, err := second.CellAt(1, 2)
	if err != nil {
		t.Fatalf("CellAt: %v", err)
	}
	if cell.Value != 3 || cell.LastWriter != "alice" {
		t.Fatalf("restored cell = %+v, want value 3 by alice", cell)
	}
}

func TestNewServiceRejectsMismatchedStore(t *testing.T) {
	store := memory.New()
	newTestService(t, ServiceConfig{Store: store})

	widened := testCanvasConfig()
	widened.Width = 5
	_, err := NewService(context.Background(), ServiceConfig{Canvas: widened, Store: store})
	if err == nil {
		t.Fatal("expected error for mismatched store")
	}
	if !strings.Contains(err.Error(), "store holds") {
		t.Fatalf("error = %v, expected store mismatch", err)
	}
}

func TestPlaceCellEnforcesCooldown(t *testing.T) {
	cfg := testCanvasConfig()
	cfg.CooldownSeconds = 10
	svc := newTestService(t, ServiceConfig{Canvas: cfg})

	result, err := svc.PlaceCell(context.Background(), 1, 2, 3, "alice")
	if err != nil {
		t.Fatalf("PlaceCell: %v", err)
	}
	if result.Entry.Seq != 1 {
		t.Fatalf("entry seq = %d, want 1", result.Entry.Seq)
	}
	if result.Cell.LastWriteAt != 1000 {
		t.Fatalf("cell write time = %d, want 1000", result.Cell.LastWriteAt)
	}

	cooldown, remaining := svc.CooldownStatus("alice")
	if cooldown != 10 || remaining != 10 {
		t.Fatalf("cooldown status = (%d, %d), want (10, 10)", cooldown, remaining)
	}

	_, err = svc.PlaceCell(context.Background(), 0, 0, 1, "alice")
	assertCode(t, err, apperrors.CodeCooldownActive)

	// Other painters are not affected.
	if _, err := svc.PlaceCell(context.Background(), 0, 0, 1, "bob"); err != nil {
		t.Fatalf("PlaceCell for bob: %v", err)
	}
}

func TestCooldownStatusAnonymousActor(t *testing.T) {
	cfg := testCanvasConfig()
	cfg.CooldownSeconds = 10
	svc := newTestService(t, ServiceConfig{Canvas: cfg})

	cooldown, remaining := svc.CooldownStatus("")
	if cooldown != 10 || remaining != 0 {
		t.Fatalf("anonymous cooldown status = (%d, %d), want (10, 0)", cooldown, remaining)
	}
}

func TestConcurrentReadersSeeConsistentCells(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})

	// Every painter always writes its own value, so a reader can tell a
	// torn cell by a writer/value pair no single write produced.
	painters := map[string]uint8{
		"painter-1": 1,
		"painter-2": 2,
		"painter-3": 3,
		"painter-4": 4,
	}

	var writers sync.WaitGroup
	for actor, value := range painters {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for i := 0; i < 200; i++ {
				if _, err := svc.PlaceCell(context.Background(), 0, 0, int(value), actor); err != nil {
					t.Errorf("PlaceCell by %s: %v", actor, err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				cell, err := svc.CellAt(0, 0)
				if err != nil {
					t.Errorf("CellAt: %v", err)
					return
				}
				if cell.LastWriter == "" {
					if cell.Value != 0 || cell.LastWriteAt != 0 {
						t.Errorf("unwritten cell carries value %d at %d", cell.Value, cell.LastWriteAt)
						return
					}
					continue
				}
				want, known := painters[cell.LastWriter]
				if !known {
					t.Errorf("cell written by unknown painter %q", cell.LastWriter)
					return
				}
				if cell.Value != want || cell.LastWriteAt == 0 {
					t.Errorf("torn cell: writer %q paired with value %d at %d", cell.LastWriter, cell.Value, cell.LastWriteAt)
					return
				}
			}
		}()
	}

	writers.Wait()
	close(done)
	readers.Wait()

	cell, err := svc.CellAt(0, 0)
	if err != nil {
		t.Fatalf("CellAt: %v", err)
	}
	if _, known := painters[cell.LastWriter]; !known {
		t.Fatalf("final cell writer = %q, want one of the painters", cell.LastWriter)
	}
}

func TestCreateSnapshotRendersAndStoresImage(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Blobs: newTestBlobs(t)})

	if _, err := svc.PlaceCell(context.Background(), 0, 0, 5, "alice"); err != nil {
		t.Fatalf("PlaceCell: %v", err)
	}
	result, err := svc.CreateSnapshot(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if result.Snapshot.ID != 1 {
		t.Fatalf("snapshot id = %d, want 1", result.Snapshot.ID)
	}
	if result.Snapshot.ImageRef == "" {
		t.Fatal("expected a rendered image reference")
	}
	if result.Snapshot.Composed {
		t.Fatal("live capture must not be marked composed")
	}

	png, err := svc.SnapshotImage(context.Background(), 1)
	if err != nil {
		t.Fatalf("SnapshotImage: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Fatalf("snapshot image does not look like a PNG: % x", png[:min(len(png), 8)])
	}

	// Unchanged content is a conflict, not a second snapshot.
	_, err = svc.CreateSnapshot(context.Background(), "bob")
	assertCode(t, err, apperrors.CodeDuplicateSnapshot)
}

func TestCreateSnapshotWithoutImageStore(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	_, err := svc.CreateSnapshot(context.Background(), "alice")
	assertCode(t, err, apperrors.CodeUnavailable)
}

func TestComposeSnapshotRendersImage(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Blobs: newTestBlobs(t)})

	values := make([]uint8, 16)
	values[3] = 2
	result, err := svc.ComposeSnapshot(context.Background(), "carol", values)
	if err != nil {
		t.Fatalf("ComposeSnapshot: %v", err)
	}
	if !result.Snapshot.Composed {
		t.Fatal("expected a composed snapshot")
	}
	if result.Snapshot.ImageRef == "" {
		t.Fatal("expected a rendered image reference")
	}
	if len(result.Snapshot.Payload) != 16 {
		t.Fatalf("payload length = %d, want 16", len(result.Snapshot.Payload))
	}

	png, err := svc.SnapshotImage(context.Background(), result.Snapshot.ID)
	if err != nil {
		t.Fatalf("SnapshotImage: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Fatal("composed snapshot image does not look like a PNG")
	}
}

func TestComposeSnapshotWithoutImageStoreKeepsPayload(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})

	values := make([]uint8, 16)
	values[0] = 1
	result, err := svc.ComposeSnapshot(context.Background(), "carol", values)
	if err != nil {
		t.Fatalf("ComposeSnapshot: %v", err)
	}
	if result.Snapshot.ImageRef != "" {
		t.Fatalf("image ref = %q, want empty without an image store", result.Snapshot.ImageRef)
	}
	if len(result.Snapshot.Payload) != 16 {
		t.Fatalf("payload length = %d, want 16", len(result.Snapshot.Payload))
	}

	_, err = svc.SnapshotImage(context.Background(), result.Snapshot.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestComposeSnapshotRejectsBadPayload(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Blobs: newTestBlobs(t)})

	_, err := svc.ComposeSnapshot(context.Background(), "carol", []uint8{1, 2, 3})
	assertCode(t, err, apperrors.CodeInvalidPayloadLength)

	bad := make([]uint8, 16)
	bad[7] = 8 // palette size is 8, so 8 is out of range
	_, err = svc.ComposeSnapshot(context.Background(), "carol", bad)
	assertCode(t, err, apperrors.CodeInvalidValue)
}

func TestMintLifecycle(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Blobs: newTestBlobs(t)})

	values := make([]uint8, 16)
	values[1] = 4
	snap, err := svc.ComposeSnapshot(context.Background(), "alice", values)
	if err != nil {
		t.Fatalf("ComposeSnapshot: %v", err)
	}

	_, err = svc.Mint(context.Background(), snap.Snapshot.ID, 50, "alice")
	assertCode(t, err, apperrors.CodeInsufficientPayment)

	_, err = svc.Mint(context.Background(), snap.Snapshot.ID, 120, "mallory")
	assertCode(t, err, apperrors.CodeNotCreator)

	minted, err := svc.Mint(context.Background(), snap.Snapshot.ID, 120, "alice")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if minted.AlreadyMinted {
		t.Fatal("fresh mint reported as already minted")
	}
	if minted.Collectible.TokenID != 1 || minted.Collectible.Paid != 120 {
		t.Fatalf("collectible = %+v, want token 1 paid 120", minted.Collectible)
	}

	again, err := svc.Mint(context.Background(), snap.Snapshot.ID, 120, "alice")
	if err != nil {
		t.Fatalf("idempotent Mint: %v", err)
	}
	if !again.AlreadyMinted {
		t.Fatal("expected already-minted result")
	}
	if again.Collectible.TokenID != minted.Collectible.TokenID {
		t.Fatalf("re-mint token = %d, want %d", again.Collectible.TokenID, minted.Collectible.TokenID)
	}
	if again.Entry.Seq != 0 {
		t.Fatalf("re-mint entry seq = %d, want no entry", again.Entry.Seq)
	}

	_, _, collectibles, balance := svc.Stats()
	if collectibles != 1 || balance != 120 {
		t.Fatalf("stats = %d collectibles, balance %d, want 1 and 120", collectibles, balance)
	}
}

func TestWithdrawPaysThroughSink(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, ServiceConfig{Blobs: newTestBlobs(t), Payout: sink})

	values := make([]uint8, 16)
	values[2] = 2
	snap, err := svc.ComposeSnapshot(context.Background(), "alice", values)
	if err != nil {
		t.Fatalf("ComposeSnapshot: %v", err)
	}
	if _, err := svc.Mint(context.Background(), snap.Snapshot.ID, 150, "alice"); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	result, err := svc.Withdraw(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if result.Amount != 150 || result.Recipient != "admin" {
		t.Fatalf("withdraw result = %+v, want 150 to admin", result)
	}
	if sink.recipient != "admin" || sink.amount != 150 {
		t.Fatalf("sink saw %d to %q, want 150 to admin", sink.amount, sink.recipient)
	}

	_, _, _, balance := svc.Stats()
	if balance != 0 {
		t.Fatalf("balance after withdraw = %d, want 0", balance)
	}
}

func TestWithdrawRequiresAdmin(t *testing.T) {
	svc := newTestService(t, ServiceConfig{Payout: &recordingSink{}})
	_, err := svc.Withdraw(context.Background(), "alice")
	assertCode(t, err, apperrors.CodeNotAuthorized)
}

func TestSetCooldownAndMintPrice(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})

	update, err := svc.SetCooldown(context.Background(), 30, "admin")
	if err != nil {
		t.Fatalf("SetCooldown: %v", err)
	}
	if update.OldSeconds != 0 || update.NewSeconds != 30 {
		t.Fatalf("cooldown update = %+v, want 0 -> 30", update)
	}

	price, err := svc.SetMintPrice(context.Background(), 250, "admin")
	if err != nil {
		t.Fatalf("SetMintPrice: %v", err)
	}
	if price.OldPrice != 100 || price.NewPrice != 250 {
		t.Fatalf("price update = %+v, want 100 -> 250", price)
	}

	cfg, _, _, _ := svc.Stats()
	if cfg.CooldownSeconds != 30 || cfg.MintPrice != 250 {
		t.Fatalf("stats config = %+v, want cooldown 30 price 250", cfg)
	}
}

func TestSnapshotsPageAndFilter(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})

	creators := []string{"alice", "bob", "alice"}
	for i, creator := range creators {
		values := make([]uint8, 16)
		values[i] = uint8(i + 1)
		if _, err := svc.ComposeSnapshot(context.Background(), creator, values); err != nil {
			t.Fatalf("ComposeSnapshot %d: %v", i, err)
		}
	}

	page := svc.Snapshots("", 0, 2)
	if len(page) != 2 || page[0].ID != 1 || page[1].ID != 2 {
		t.Fatalf("first page = %+v, want snapshots 1 and 2", page)
	}
	rest := svc.Snapshots("", 2, 10)
	if len(rest) != 1 || rest[0].ID != 3 {
		t.Fatalf("second page = %+v, want snapshot 3", rest)
	}

	mine := svc.Snapshots("alice", 0, 10)
	if len(mine) != 2 || mine[0].ID != 1 || mine[1].ID != 3 {
		t.Fatalf("creator page = %+v, want snapshots 1 and 3", mine)
	}

	if got := svc.Snapshots("", 0, 0); got != nil {
		t.Fatalf("zero limit = %+v, want nil", got)
	}
}

func TestAutoScale(t *testing.T) {
	tests := []struct {
		width, height int
		want          int
	}{
		{4, 4, 8},
		{1024, 1024, 8},
		{2048, 1024, 4},
		{2048, 2048, 4},
	}
	for _, tt := range tests {
		if got := autoScale(tt.width, tt.height); got != tt.want {
			t.Errorf("autoScale(%d, %d) = %d, want %d", tt.width, tt.height, got, tt.want)
		}
	}
}
