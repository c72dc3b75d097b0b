package broadcast

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventType names a real-time message's payload shape. The wire values are
// the exact type strings spec §6.1 assigns each frame, both server→client
// world events and the client-driven subscription/keepalive frames a
// connection's read loop handles.
type EventType string

const (
	EventTitanSpawned  EventType = "titan_spawn"
	EventTitanCaptured EventType = "titan_captured"
	EventTitanExpired  EventType = "titan_expired"
	EventPong          EventType = "pong"
	EventError         EventType = "error"

	FrameSubscribe   EventType = "subscribe"
	FrameUnsubscribe EventType = "unsubscribe"
	FramePing        EventType = "ping"
)

// Envelope wraps every broadcast message with its type tag so subscribers
// can dispatch without inspecting the payload shape first.
type Envelope struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// TitanSpawnedEvent announces a new spawn to a region.
type TitanSpawnedEvent struct {
	TitanID     uuid.UUID `json:"titanId"`
	POIID       uuid.UUID `json:"poiId"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Element     int       `json:"element"`
	ThreatClass int       `json:"threatClass"`
	ExpiresAt   string    `json:"expiresAt"`
}

// TitanCapturedEvent announces a successful capture.
type TitanCapturedEvent struct {
	TitanID           uuid.UUID  `json:"titanId"`
	CapturedBy        *uuid.UUID `json:"capturedBy,omitempty"`
	RemainingCaptures int        `json:"remainingCaptures"`
}

// TitanExpiredEvent announces a spawn falling out of the world.
type TitanExpiredEvent struct {
	TitanID uuid.UUID `json:"titanId"`
}

// PongEvent answers a client ping frame; it carries no payload beyond its
// type tag.
type PongEvent struct{}

// ErrorEvent reports a malformed or rejected client frame back over the
// same connection.
type ErrorEvent struct {
	Message string `json:"message"`
}

// ClientFrame is an inbound client→server frame: {"type": "...", "data": {...}}
// (spec §6.1). Data is left raw so each frame type parses its own shape.
type ClientFrame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SubscriptionFrameData is the data payload of subscribe/unsubscribe
// frames: the geohash cell to add or drop.
type SubscriptionFrameData struct {
	Geohash string `json:"geohash"`
}
