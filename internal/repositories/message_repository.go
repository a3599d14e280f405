package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-sync/internal/models"
)

var ErrMessageNotFound = errors.New("archived message not found")

// ArchivedMessage is one row of the message archive.
type ArchivedMessage struct {
	RoomName      string         `db:"room_name" json:"room_name"`
	ID            int            `db:"id" json:"id"`
	RoomID        int            `db:"room_id" json:"room"`
	SenderID      int            `db:"sender_id" json:"sender_id"`
	SenderName    string         `db:"sender_name" json:"sender_name"`
	Content       string         `db:"content" json:"content"`
	FileURL       sql.NullString `db:"file_url" json:"-"`
	SentAt        time.Time      `db:"sent_at" json:"timestamp"`
	IsRead        bool           `db:"is_read" json:"is_read"`
	IsEdited      bool           `db:"is_edited" json:"is_edited"`
	EditedAt      sql.NullTime   `db:"edited_at" json:"-"`
	ReactionTypes pq.StringArray `db:"reaction_types" json:"reaction_types"`
}

// MessageRepository archives chat messages as they reach the store.
type MessageRepository interface {
	SaveMessage(ctx context.Context, roomName string, msg models.Message) error
	ListMessages(ctx context.Context, roomName string, limit int) ([]ArchivedMessage, error)
	GetMessage(ctx context.Context, roomName string, id int) (ArchivedMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// SaveMessage upserts a message; later saves carry edits, read flags and reactions.
func (r *MessageRepo) SaveMessage(ctx context.Context, roomName string, msg models.Message) error {
	reactions := make([]string, 0, len(msg.Reactions))
	for _, re := range msg.Reactions {
		reactions = append(reactions, string(re.ReactionType))
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO archived_messages
            (room_name, id, room_id, sender_id, sender_name, content, file_url, sent_at, is_read, is_edited, edited_at, reaction_types)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (room_name, id) DO UPDATE SET
            content = EXCLUDED.content,
            is_read = EXCLUDED.is_read,
            is_edited = EXCLUDED.is_edited,
            edited_at = EXCLUDED.edited_at,
            reaction_types = EXCLUDED.reaction_types`,
		roomName, msg.ID, msg.Room, msg.Sender.ID, msg.Sender.Fullname, msg.Content,
		nullString(msg.FileURL), msg.Timestamp, msg.IsRead, msg.IsEdited, nullTime(msg.EditedAt), pq.Array(reactions))
	if err != nil {
		return fmt.Errorf("archive message %d: %w", msg.ID, err)
	}
	return nil
}

// ListMessages returns the newest archived messages of a room in send order.
func (r *MessageRepo) ListMessages(ctx context.Context, roomName string, limit int) ([]ArchivedMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT room_name, id, room_id, sender_id, sender_name, content, file_url, sent_at, is_read, is_edited, edited_at, reaction_types
        FROM (
            SELECT * FROM archived_messages WHERE room_name=$1 ORDER BY sent_at DESC, id DESC LIMIT $2
        ) recent
        ORDER BY sent_at ASC, id ASC`
	var msgs []ArchivedMessage
	err := r.db.SelectContext(ctx, &msgs, query, roomName, limit)
	return msgs, err
}

// GetMessage retrieves a single archived message.
func (r *MessageRepo) GetMessage(ctx context.Context, roomName string, id int) (ArchivedMessage, error) {
	var msg ArchivedMessage
	err := r.db.GetContext(ctx, &msg, `SELECT room_name, id, room_id, sender_id, sender_name, content, file_url, sent_at, is_read, is_edited, edited_at, reaction_types
        FROM archived_messages WHERE room_name=$1 AND id=$2`, roomName, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ArchivedMessage{}, ErrMessageNotFound
	}
	return msg, err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
