package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/pixelfield/internal/platform/metrics"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
)

const (
	// feedSendBuffer is the per-subscriber backlog. A subscriber that
	// falls further behind starts losing frames; the journal, not the
	// feed, is the durable record.
	feedSendBuffer = 64

	maxFeedFrameBytes = 16 * 1024
)

// feedFrame is the wire envelope for the live journal feed.
type feedFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// feedHello greets a new subscriber with the journal position so clients
// know where to resume reading from GET /v1/events.
type feedHello struct {
	Seq uint64 `json:"seq"`
}

// feedEntry mirrors a sealed journal entry.
type feedEntry struct {
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

type feedPeer struct {
	send chan []byte
	done chan struct{}
}

// feedHub fans sealed journal entries out to websocket subscribers.
// Delivery is best effort: a slow subscriber drops frames instead of
// backpressuring the write path.
type feedHub struct {
	mu      sync.Mutex
	peers   map[*feedPeer]struct{}
	lastSeq uint64
	metrics *metrics.Canvas
}

func newFeedHub(m *metrics.Canvas, lastSeq uint64) *feedHub {
	return &feedHub{
		peers:   make(map[*feedPeer]struct{}),
		lastSeq: lastSeq,
		metrics: m,
	}
}

// Broadcast fans an entry out to every subscriber. Frames are marshaled
// once and dropped per-peer when a send buffer is full.
func (h *feedHub) Broadcast(entry event.Entry) {
	frame, err := json.Marshal(feedFrame{
		Type: string(entry.Type),
		Payload: mustJSON(feedEntry{
			Seq:       entry.Seq,
			Hash:      entry.Hash,
			PrevHash:  entry.PrevHash,
			ChainHash: entry.ChainHash,
			At:        entry.At,
			Type:      string(entry.Type),
			Actor:     entry.Actor,
			RequestID: entry.RequestID,
			Payload:   json.RawMessage(entry.PayloadJSON),
		}),
	})
	if err != nil {
		log.Printf("canvas: marshal feed frame: %v", err)
		return
	}

	h.mu.Lock()
	h.lastSeq = entry.Seq
	peers := make([]*feedPeer, 0, len(h.peers))
	for peer := range h.peers {
		peers = append(peers, peer)
	}
	h.mu.Unlock()

	for _, peer := range peers {
		select {
		case peer.send <- frame:
		default:
			h.metrics.RecordFeedDrop()
		}
	}
}

// Handler returns the websocket endpoint for the feed.
func (h *feedHub) Handler() http.Handler {
	return websocket.Handler(h.handleConn)
}

func (h *feedHub) handleConn(conn *websocket.Conn) {
	conn.MaxPayloadBytes = maxFeedFrameBytes
	defer func() {
		_ = conn.Close()
	}()

	peer := &feedPeer{
		send: make(chan []byte, feedSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.peers[peer] = struct{}{}
	lastSeq := h.lastSeq
	h.mu.Unlock()
	h.metrics.FeedClientConnected()

	defer func() {
		h.mu.Lock()
		delete(h.peers, peer)
		h.mu.Unlock()
		close(peer.done)
		h.metrics.FeedClientDisconnected()
	}()

	hello, err := json.Marshal(feedFrame{Type: "canvas.hello", Payload: mustJSON(feedHello{Seq: lastSeq})})
	if err != nil {
		log.Printf("canvas: marshal feed hello: %v", err)
		return
	}
	if err := websocket.Message.Send(conn, string(hello)); err != nil {
		return
	}

	go peer.writeLoop(conn)

	// Inbound frames carry no meaning on this feed; reading until the
	// client hangs up is what keeps the connection accounted for.
	_, _ = io.Copy(io.Discard, conn)
}

func (p *feedPeer) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case frame := <-p.send:
			if err := websocket.Message.Send(conn, string(frame)); err != nil {
				_ = conn.Close()
				return
			}
		case <-p.done:
			return
		}
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("canvas: marshal feed payload: %v", err)
		return nil
	}
	return b
}
