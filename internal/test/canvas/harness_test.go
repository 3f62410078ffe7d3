//go:build scenario

package canvas

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	server "github.com/louisbranch/pixelfield/internal/services/canvas/app"
	"github.com/louisbranch/pixelfield/internal/services/canvas/blob"
	canvasdomain "github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	storagesqlite "github.com/louisbranch/pixelfield/internal/services/canvas/storage/sqlite"
)

func scenarioTimeout() time.Duration {
	return 10 * time.Second
}

// scenarioClock is the manual clock handed to the service so scripts can
// cross cooldown windows without sleeping.
type scenarioClock struct {
	mu  sync.Mutex
	now time.Time
}

func newScenarioClock() *scenarioClock {
	return &scenarioClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *scenarioClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *scenarioClock) Advance(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Duration(seconds) * time.Second)
}

// recordingPayout remembers every transfer and can be armed to refuse
// the next one, which is how scripts exercise the failed-withdrawal path.
type recordingPayout struct {
	mu       sync.Mutex
	failNext bool
	payments []payment
}

type payment struct {
	recipient string
	amount    uint64
}

func (p *recordingPayout) Pay(_ context.Context, recipient string, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("payout refused")
	}
	p.payments = append(p.payments, payment{recipient: recipient, amount: amount})
	return nil
}

func (p *recordingPayout) armFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

func (p *recordingPayout) last() (payment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payments) == 0 {
		return payment{}, false
	}
	return p.payments[len(p.payments)-1], true
}

// scenarioWorld owns one freshly booted canvas service plus the
// collaborators a script drives it through.
type scenarioWorld struct {
	service *server.Service
	clock   *scenarioClock
	payout  *recordingPayout
}

func newScenarioWorld(t *testing.T, cfg canvasdomain.Config) *scenarioWorld {
	t.Helper()

	store, err := storagesqlite.Open(filepath.Join(t.TempDir(), "canvas.db"))
	if err != nil {
		t.Fatalf("open canvas store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close canvas store: %v", err)
		}
	})

	blobs, err := blob.Open(blob.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	t.Cleanup(func() {
		if err := blobs.Close(); err != nil {
			t.Errorf("close blob store: %v", err)
		}
	})

	clock := newScenarioClock()
	payout := &recordingPayout{}

	service, err := server.NewService(context.Background(), server.ServiceConfig{
		Canvas: cfg,
		Store:  store,
		Blobs:  blobs,
		Payout: payout,
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("new canvas service: %v", err)
	}

	return &scenarioWorld{service: service, clock: clock, payout: payout}
}

func repoRoot(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to resolve runtime caller")
	}

	dir := filepath.Dir(filename)
	for {
		candidate := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatalf("go.mod not found from %s", filename)
	return ""
}
