// Package broadcast is C6, the real-time world-update fanout. It buckets
// subscribers by geohash cell and delivers messages only to the cells a
// broadcast targets, adapted from the teacher's single global Hub
// (internal/api/websocket.go) into a geohash-partitioned one.
package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/geo"
)

// sendQueueSize bounds each subscriber's outbound buffer. A slow or stalled
// client never blocks the broadcaster; once full, further messages to that
// subscriber are dropped (spec §4.6 fail-open backpressure).
const sendQueueSize = 32

const writeDeadline = 5 * time.Second

// Subscriber is one live WebSocket connection. It may belong to any number
// of geohash sets at once (spec §3): a player's client subscribes to the
// cells it cares about and drops them independently via subscribe/
// unsubscribe frames, rather than being pinned to one cell for its
// connection's lifetime.
type Subscriber struct {
	ID        uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
	lastSeen  time.Time
	mu        sync.Mutex
	geohashes map[string]struct{}
}

func (s *Subscriber) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Subscriber) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Subscriber) geohashSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.geohashes))
	for g := range s.geohashes {
		out = append(out, g)
	}
	return out
}

// Hub is the process-wide broadcaster C9's shared state holds one of.
type Hub struct {
	mu          sync.RWMutex
	byGeohash   map[string]map[uuid.UUID]*Subscriber
	subscribers map[uuid.UUID]*Subscriber
	log         *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		byGeohash:   make(map[string]map[uuid.UUID]*Subscriber),
		subscribers: make(map[uuid.UUID]*Subscriber),
		log:         log,
	}
}

// Subscribe registers conn, subscribed to an initial geohash cell, and
// starts its read/write pumps. The returned Subscriber's ID is used for
// Unsubscribe; AddGeohash/RemoveGeohash manage further cell membership as
// subscribe/unsubscribe frames arrive.
func (h *Hub) Subscribe(conn *websocket.Conn, geohash string) *Subscriber {
	sub := &Subscriber{
		ID:        uuid.New(),
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		lastSeen:  time.Now(),
		geohashes: map[string]struct{}{geohash: {}},
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.addToGeohashLocked(sub, geohash)
	h.mu.Unlock()

	go h.writePump(sub)
	go h.readPump(sub)

	h.log.Debug("subscriber connected", zap.String("geohash", geohash), zap.Int("total", h.TotalConnections()))
	return sub
}

// AddGeohash subscribes sub to an additional cell (the subscribe frame).
func (h *Hub) AddGeohash(sub *Subscriber, geohash string) {
	sub.mu.Lock()
	sub.geohashes[geohash] = struct{}{}
	sub.mu.Unlock()

	h.mu.Lock()
	h.addToGeohashLocked(sub, geohash)
	h.mu.Unlock()
}

// RemoveGeohash drops sub's membership in one cell (the unsubscribe frame)
// without closing its connection.
func (h *Hub) RemoveGeohash(sub *Subscriber, geohash string) {
	sub.mu.Lock()
	delete(sub.geohashes, geohash)
	sub.mu.Unlock()

	h.mu.Lock()
	h.removeFromGeohashLocked(sub, geohash)
	h.mu.Unlock()
}

func (h *Hub) addToGeohashLocked(sub *Subscriber, geohash string) {
	if h.byGeohash[geohash] == nil {
		h.byGeohash[geohash] = make(map[uuid.UUID]*Subscriber)
	}
	h.byGeohash[geohash][sub.ID] = sub
}

func (h *Hub) removeFromGeohashLocked(sub *Subscriber, geohash string) {
	if set, ok := h.byGeohash[geohash]; ok {
		delete(set, sub.ID)
		if len(set) == 0 {
			delete(h.byGeohash, geohash)
		}
	}
}

// Unsubscribe removes a subscriber from every geohash it belongs to and
// closes its connection. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, sub.ID)
	for _, g := range sub.geohashSnapshot() {
		h.removeFromGeohashLocked(sub, g)
	}
	h.mu.Unlock()

	close(sub.send)
	_ = sub.conn.Close()
}

// Broadcast delivers msg to every subscriber of a single geohash cell.
func (h *Hub) Broadcast(geohash string, msg []byte) {
	h.mu.RLock()
	set := h.byGeohash[geohash]
	subs := make([]*Subscriber, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.enqueue(sub, msg)
	}
}

// BroadcastToNeighbors delivers msg to the target cell and its 8 adjacent
// cells, the fanout radius spawn events use so a subscriber near a
// cell boundary still sees activity just across it. A subscriber reachable
// through more than one of the 9 cells (possible when neighbor cells
// coincide near a wraparound edge) still receives exactly one copy.
func (h *Hub) BroadcastToNeighbors(geohash string, msg []byte) {
	h.mu.RLock()
	seen := make(map[uuid.UUID]*Subscriber)
	for _, cell := range geo.Neighbors(geohash).All() {
		for id, sub := range h.byGeohash[cell] {
			seen[id] = sub
		}
	}
	h.mu.RUnlock()

	for _, sub := range seen {
		h.enqueue(sub, msg)
	}
}

// enqueue drops msg for sub if its send buffer is full rather than blocking
// the broadcaster on one slow client.
func (h *Hub) enqueue(sub *Subscriber, msg []byte) {
	select {
	case sub.send <- msg:
	default:
		h.log.Warn("dropping message for slow subscriber", zap.String("subscriber", sub.ID.String()))
	}
}

// writePump drains a subscriber's send channel onto its connection until the
// channel is closed (by Unsubscribe) or a write fails.
func (h *Hub) writePump(sub *Subscriber) {
	for msg := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("subscriber write failed", zap.Error(err))
			h.Unsubscribe(sub)
			return
		}
	}
}

// readPump detects disconnects, answers the WS-protocol-level ping/pong
// gorilla wires up automatically, and parses the client's own JSON frames:
// subscribe/unsubscribe change this connection's geohash membership, and an
// application-level ping gets an application-level pong reply (spec §6.1;
// distinct from the transport-level ping/pong frame gorilla's Conn already
// answers under the hood).
func (h *Hub) readPump(sub *Subscriber) {
	sub.conn.SetPongHandler(func(string) error {
		sub.touch()
		return nil
	})
	for {
		_, raw, err := sub.conn.ReadMessage()
		if err != nil {
			h.Unsubscribe(sub)
			return
		}
		sub.touch()
		h.handleClientFrame(sub, raw)
	}
}

// handleClientFrame dispatches one inbound text frame. A malformed frame or
// unrecognized type gets an error frame back rather than dropping the
// connection — only a read/write failure on the socket itself does that.
func (h *Hub) handleClientFrame(sub *Subscriber, raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(sub, "malformed frame")
		return
	}

	switch frame.Type {
	case FrameSubscribe, FrameUnsubscribe:
		var data SubscriptionFrameData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.Geohash == "" {
			h.sendError(sub, "subscribe/unsubscribe frame requires a geohash")
			return
		}
		if frame.Type == FrameSubscribe {
			h.AddGeohash(sub, data.Geohash)
		} else {
			h.RemoveGeohash(sub, data.Geohash)
		}
	case FramePing:
		h.sendPong(sub)
	default:
		h.sendError(sub, "unrecognized frame type")
	}
}

func (h *Hub) sendPong(sub *Subscriber) {
	if payload, err := json.Marshal(Envelope{Type: EventPong, Data: PongEvent{}}); err == nil {
		h.enqueue(sub, payload)
	}
}

func (h *Hub) sendError(sub *Subscriber, message string) {
	if payload, err := json.Marshal(Envelope{Type: EventError, Data: ErrorEvent{Message: message}}); err == nil {
		h.enqueue(sub, payload)
	}
}

// CleanupStale disconnects subscribers that haven't been seen (no read, no
// pong) within maxIdle, C8's WS-reaper tick. Returns the number removed.
func (h *Hub) CleanupStale(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.RLock()
	stale := make([]*Subscriber, 0)
	for _, sub := range h.subscribers {
		if sub.idleSince().Before(cutoff) {
			stale = append(stale, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stale {
		h.Unsubscribe(sub)
	}
	return len(stale)
}

// TotalConnections reports the current subscriber count, used by C8's
// metrics tick.
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
