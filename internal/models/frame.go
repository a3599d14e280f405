package models

import "time"

// Frame type discriminants.
const (
	FrameMessage         = "message"
	FrameReaction        = "reaction"
	FrameTyping          = "typing"
	FrameStatus          = "status"
	FrameNewNotification = "NEW_NOTIFICATION"
	FrameError           = "error"
)

// FrameHeader is decoded first to find the discriminant.
type FrameHeader struct {
	Type string `json:"type"`
}

// MessageFrame is pushed by the chat channel when a message is stored.
type MessageFrame struct {
	Type      string     `json:"type"`
	MessageID int        `json:"message_id"`
	Room      int        `json:"room"`
	Sender    User       `json:"sender"`
	Message   string     `json:"message"`
	FileURL   *string    `json:"file_url"`
	Timestamp time.Time  `json:"timestamp"`
	IsEdited  bool       `json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at"`
	Reactions []Reaction `json:"reactions"`
}

// ReactionFrame is pushed when a user reacts to a message. It carries no room.
type ReactionFrame struct {
	Type         string       `json:"type"`
	MessageID    int          `json:"message_id"`
	User         User         `json:"user"`
	ReactionType ReactionType `json:"reaction_type"`
}

// TypingFrame is pushed when a room participant starts or stops typing.
type TypingFrame struct {
	Type     string `json:"type"`
	User     User   `json:"user"`
	IsTyping bool   `json:"is_typing"`
}

// StatusFrame is pushed by the presence channel and redundantly by chat channels.
type StatusFrame struct {
	Type   string         `json:"type"`
	User   User           `json:"user"`
	Status PresenceStatus `json:"status"`
}

// NotificationFrame is pushed by the notification channel.
type NotificationFrame struct {
	Type         string       `json:"type"`
	Notification Notification `json:"notification"`
	UnreadCount  int          `json:"unread_count"`
}

// ErrorFrame is sent by the chat channel when it rejects an inbound frame.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OutboundMessage is written to a chat channel to post a message.
type OutboundMessage struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	FileURL *string `json:"file_url,omitempty"`
}

// OutboundTyping is written to a chat channel to signal typing.
type OutboundTyping struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// OutboundReaction is written to a chat channel to react to a message.
type OutboundReaction struct {
	Type         string       `json:"type"`
	MessageID    int          `json:"message_id"`
	ReactionType ReactionType `json:"reaction_type"`
}
