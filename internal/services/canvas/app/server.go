package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/pixelfield/internal/platform/metrics"
	"github.com/louisbranch/pixelfield/internal/platform/timeouts"
	apihttp "github.com/louisbranch/pixelfield/internal/services/canvas/api/http"
	"github.com/louisbranch/pixelfield/internal/services/canvas/blob"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/palette"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage/sqlite"
)

// Config defines the inputs for the canvas service process.
type Config struct {
	HTTPAddr    string
	DBPath      string
	BlobDir     string
	PalettePath string
	// Canvas seeds the grid on first boot. Ignored once the store is
	// initialized, except that the static dimensions must still match.
	Canvas canvas.Config
	// RenderScale is the pixel size of a cell in rendered snapshots.
	// Zero picks the largest scale that fits the image bounds.
	RenderScale       int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the canvas HTTP process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
	blobs           *blob.Store
	service         *Service
}

// logPayoutSink acknowledges treasury payouts in the process log. The
// treasury counts internal units rather than real funds, so the log line
// is the payout.
type logPayoutSink struct{}

func (logPayoutSink) Pay(_ context.Context, recipient string, amount uint64) error {
	log.Printf("canvas: paid out %d to %s", amount, recipient)
	return nil
}

// NewServer builds a configured canvas server with its storage open and
// routes wired.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	server := &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
	}

	store, err := openCanvasStore(config.DBPath)
	if err != nil {
		return nil, err
	}
	server.store = store

	blobs, err := blob.Open(blob.Config{Path: config.BlobDir, SyncWrites: true})
	if err != nil {
		server.Close()
		return nil, err
	}
	server.blobs = blobs

	var pal palette.Palette
	if strings.TrimSpace(config.PalettePath) != "" {
		pal, err = palette.Load(config.PalettePath)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("load palette: %w", err)
		}
	}

	canvasMetrics := metrics.NewCanvas()

	service, err := NewService(ctx, ServiceConfig{
		Canvas:      config.Canvas,
		Store:       store,
		Blobs:       blobs,
		Payout:      logPayoutSink{},
		Palette:     pal,
		RenderScale: config.RenderScale,
		Metrics:     canvasMetrics,
	})
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("init canvas service: %w", err)
	}
	server.service = service

	grants, err := apihttp.LoadGrantVerifierFromEnv(nil)
	if err != nil {
		server.Close()
		return nil, err
	}
	if grants != nil {
		log.Printf("canvas: painter grants enabled for issuer %s", grants.Issuer)
	} else {
		log.Printf("canvas: painter grants not configured, trusting X-Canvas-Actor header")
	}

	handler, err := apihttp.NewHandler(apihttp.Config{
		Canvas:   service,
		Grants:   grants,
		LiveFeed: service.FeedHandler(),
		Metrics:  canvasMetrics.Handler(),
	})
	if err != nil {
		server.Close()
		return nil, err
	}

	server.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return server, nil
}

// Run creates and serves a canvas server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(ctx, config)
	if err != nil {
		return fmt.Errorf("init canvas server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve canvas: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return errors.New("canvas server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("canvas server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Service exposes the running canvas service, for embedding callers.
func (s *Server) Service() *Service {
	if s == nil {
		return nil
	}
	return s.service
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.blobs != nil {
		if err := s.blobs.Close(); err != nil {
			log.Printf("close blob store: %v", err)
		}
		s.blobs = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close canvas store: %v", err)
		}
		s.store = nil
	}
}

func openCanvasStore(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("canvas db path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create canvas data directory: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open canvas store: %w", err)
	}
	return store, nil
}
