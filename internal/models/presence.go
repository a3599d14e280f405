package models

// PresenceStatus is online or offline.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// TypingState is the entry kept per user in the typing map.
type TypingState struct {
	User     User `json:"user"`
	IsTyping bool `json:"is_typing"`
}

// UserStatus is the entry kept per user in the presence map.
type UserStatus struct {
	User   User           `json:"user"`
	Status PresenceStatus `json:"status"`
}
