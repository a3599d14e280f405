package ws

import (
	"fmt"
	"net/url"
	"strings"
)

// ChannelKind is the concern a channel is dedicated to.
type ChannelKind string

const (
	KindChat          ChannelKind = "chat"
	KindPresence      ChannelKind = "presence"
	KindNotifications ChannelKind = "notifications"
)

// ChannelKey identifies one supervised channel. Room is set only for chat channels.
type ChannelKey struct {
	Kind ChannelKind
	Room string
}

func ChatKey(room string) ChannelKey { return ChannelKey{Kind: KindChat, Room: room} }

func PresenceKey() ChannelKey { return ChannelKey{Kind: KindPresence} }

func NotificationsKey() ChannelKey { return ChannelKey{Kind: KindNotifications} }

func (k ChannelKey) String() string {
	if k.Kind == KindChat {
		return "chat-" + k.Room
	}
	return string(k.Kind)
}

func (k ChannelKey) path() string {
	switch k.Kind {
	case KindChat:
		return "/ws/chat/" + url.PathEscape(k.Room) + "/"
	case KindPresence:
		return "/ws/presence/"
	default:
		return "/ws/notifications/"
	}
}

// channelURL builds the handshake URL with the token as query parameter.
func channelURL(base string, key ChannelKey, token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + key.path())
	if err != nil {
		return "", fmt.Errorf("channel url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// State of a supervised channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateError
	StateReconnectPending
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateError:
		return "error"
	case StateReconnectPending:
		return "reconnect_pending"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
