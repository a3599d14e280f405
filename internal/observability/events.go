package observability

import "time"

// Routing keys for websocket lifecycle events.
const (
	RoutingKeyChat          = "ws_events.chat"
	RoutingKeyPresence      = "ws_events.presence"
	RoutingKeyNotifications = "ws_events.notifications"
)

type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt time.Time   `json:"occurred_at"`
	RequestID  string      `json:"request_id,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
	Payload    interface{} `json:"payload"`
}

// WSPayload describes one websocket lifecycle event.
type WSPayload struct {
	Kind       string `json:"kind"`
	Room       string `json:"room,omitempty"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
	CloseCode  int    `json:"close_code,omitempty"`
}

// RoutingKeyFor maps a channel kind to its routing key.
func RoutingKeyFor(kind string) string {
	switch kind {
	case "presence":
		return RoutingKeyPresence
	case "notifications":
		return RoutingKeyNotifications
	default:
		return RoutingKeyChat
	}
}
