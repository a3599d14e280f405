package models

import "time"

// ReactionType enumerates the reactions the backend accepts.
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionHeart ReactionType = "HEART"
	ReactionSmile ReactionType = "SMILE"
	ReactionSad   ReactionType = "SAD"
)

// Valid reports whether r is one of the known reaction types.
func (r ReactionType) Valid() bool {
	switch r {
	case ReactionLike, ReactionHeart, ReactionSmile, ReactionSad:
		return true
	}
	return false
}

// Message represents a chat message.
type Message struct {
	ID        int        `db:"id" json:"id"`
	Room      int        `db:"room_id" json:"room"`
	Sender    User       `db:"-" json:"sender"`
	Content   string     `db:"content" json:"content"`
	FileURL   *string    `db:"file_url" json:"file_url"`
	Timestamp time.Time  `db:"sent_at" json:"timestamp"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	IsEdited  bool       `db:"is_edited" json:"is_edited"`
	EditedAt  *time.Time `db:"edited_at" json:"edited_at"`
	Reactions []Reaction `db:"-" json:"reactions"`
}

// Reaction is a single user's reaction to a message.
type Reaction struct {
	ID           int          `json:"id"`
	Message      int          `json:"message"`
	User         User         `json:"user"`
	ReactionType ReactionType `json:"reaction_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = append([]Reaction(nil), m.Reactions...)
	}
	return out
}
