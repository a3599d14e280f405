package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is a user-facing notice created server-side.
type Notification struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Message          string    `db:"message" json:"message"`
	NotificationType string    `db:"notification_type" json:"notification_type"`
	Priority         Priority  `db:"priority" json:"priority"`
	IsRead           bool      `db:"is_read" json:"is_read"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	TimeSince        string    `db:"-" json:"time_since,omitempty"`
	ActionURL        *string   `db:"action_url" json:"action_url"`
	ActionText       *string   `db:"action_text" json:"action_text"`
}
