package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxDecodeErrorsPerConn = 3
	defaultFramesPerSecond = 10
	frameBurst             = 5
)

// Hub is the websocket side of the channel. Frames read from peers go to
// local subscribers; Send broadcasts to every peer and local subscriber.
type Hub struct {
	subs            subscriptions
	log             zerolog.Logger
	framesPerSecond rate.Limit

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
	conn    *websocket.Conn
}

func (p *peer) writeFrame(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// NewHub creates a hub admitting framesPerSecond inbound frames per peer.
// Zero or less uses the default.
func NewHub(log zerolog.Logger, framesPerSecond float64) *Hub {
	limit := rate.Limit(framesPerSecond)
	if framesPerSecond <= 0 {
		limit = defaultFramesPerSecond
	}
	return &Hub{
		log:             log,
		framesPerSecond: limit,
		peers:           make(map[*peer]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket peer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	websocket.Handler(h.serveConn).ServeHTTP(w, r)
}

// Send broadcasts payload on topic. Peers whose write fails are dropped.
func (h *Hub) Send(ctx context.Context, topic Topic, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := encodeFrame(topic, payload)
	if err != nil {
		return err
	}
	for _, p := range h.snapshotPeers() {
		if err := p.writeFrame(frame); err != nil {
			h.log.Debug().Err(err).Str("topic", string(topic)).Msg("drop websocket peer")
			h.removePeer(p)
			_ = p.conn.Close()
		}
	}
	h.subs.deliver(ctx, frame)
	return nil
}

// OnReceive subscribes h to frames on topic from any peer or local Send.
func (h *Hub) OnReceive(topic Topic, handler Handler) func() {
	return h.subs.add(topic, handler)
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Hub) serveConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	p := &peer{encoder: json.NewEncoder(conn), conn: conn}
	h.addPeer(p)
	defer h.removePeer(p)

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}
	limiter := rate.NewLimiter(h.framesPerSecond, frameBurst)
	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			h.log.Warn().Err(err).Int("decode_errors", decodeErrors).Msg("invalid websocket frame")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if frame.Topic == "" || len(frame.Payload) == 0 || len(frame.Payload) > maxFramePayloadBytes {
			h.log.Warn().Str("topic", string(frame.Topic)).Int("bytes", len(frame.Payload)).Msg("drop websocket frame")
			continue
		}
		if !limiter.Allow() {
			h.log.Warn().Str("topic", string(frame.Topic)).Msg("websocket peer rate limited")
			continue
		}
		h.subs.deliver(ctx, frame)
	}
}

func (h *Hub) addPeer(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) removePeer(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
}

func (h *Hub) snapshotPeers() []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	return peers
}
