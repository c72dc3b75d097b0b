package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/geo"
)

func geoNeighborsAll(hash string) []string {
	all := geo.Neighbors(hash).All()
	out := make([]string, 0, len(all)-1)
	for _, h := range all {
		if h != hash {
			out = append(out, h)
		}
	}
	return out
}

// dialSubscriber spins up a test WS server that immediately hands the
// connection to the hub under the given geohash, then dials a client
// against it, returning the client conn.
func dialSubscriber(t *testing.T, h *Hub, geohash string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.Subscribe(conn, geohash)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBroadcastDeliversToSameCell(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")

	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast("9q8yy", []byte("hello"))

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "hello", string(msg))
}

func TestBroadcastDoesNotCrossCells(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")
	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast("9q8zz", []byte("elsewhere"))

	_ = client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := client.ReadMessage()
	require.Error(t, err) // expect a timeout: nothing was delivered
}

func TestBroadcastToNeighborsDedupesAcrossCells(t *testing.T) {
	h := NewHub(zap.NewNop())

	center := "9q8yy"
	neighbors := geoNeighborsAll(center)
	require.NotEmpty(t, neighbors)

	sub := &Subscriber{ID: uuid.New(), geohashes: map[string]struct{}{center: {}}, send: make(chan []byte, sendQueueSize), lastSeen: time.Now()}
	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.byGeohash[center] = map[uuid.UUID]*Subscriber{sub.ID: sub}
	// The same subscriber pointer listed under a second cell in the
	// neighbor expansion must still only be delivered to once.
	h.byGeohash[neighbors[0]] = map[uuid.UUID]*Subscriber{sub.ID: sub}
	h.mu.Unlock()

	h.BroadcastToNeighbors(center, []byte("once"))
	require.Len(t, sub.send, 1)
}

func TestPingFrameGetsPongReply(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")
	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, client.WriteJSON(ClientFrame{Type: FramePing}))

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, EventPong, env.Type)
}

func TestSubscribeFrameAddsSecondCellMembership(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")
	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	data, err := json.Marshal(SubscriptionFrameData{Geohash: "9q8zz"})
	require.NoError(t, err)
	require.NoError(t, client.WriteJSON(ClientFrame{Type: FrameSubscribe, Data: data}))

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.byGeohash["9q8zz"]) == 1
	}, time.Second, 10*time.Millisecond)

	h.Broadcast("9q8zz", []byte("second-cell"))
	h.Broadcast("9q8yy", []byte("first-cell"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		_ = client.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := client.ReadMessage()
		require.NoError(t, err)
		seen[string(msg)] = true
	}
	assert.True(t, seen["second-cell"])
	assert.True(t, seen["first-cell"])
}

func TestUnsubscribeFrameDropsOneCellOnly(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")
	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	data, err := json.Marshal(SubscriptionFrameData{Geohash: "9q8yy"})
	require.NoError(t, err)
	require.NoError(t, client.WriteJSON(ClientFrame{Type: FrameUnsubscribe, Data: data}))

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.byGeohash["9q8yy"]) == 0
	}, time.Second, 10*time.Millisecond)

	// The connection itself is still alive, just unsubscribed from every cell.
	require.Equal(t, 1, h.TotalConnections())
}

func TestMalformedFrameGetsErrorReply(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")
	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, EventError, env.Type)
}

func TestCleanupStaleRemovesIdleSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := dialSubscriber(t, h, "9q8yy")
	defer client.Close()

	require.Eventually(t, func() bool { return h.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	removed := h.CleanupStale(-time.Second) // everything is "idle" relative to a negative window
	require.Equal(t, 1, removed)
	require.Equal(t, 0, h.TotalConnections())
}
