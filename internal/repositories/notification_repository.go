package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

// NotificationRepository archives notifications and their read state.
type NotificationRepository interface {
	SaveNotification(ctx context.Context, n models.Notification) error
	MarkRead(ctx context.Context, ids []uuid.UUID) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
}

type NotificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// SaveNotification upserts n; only the read flag changes on conflict.
func (r *NotificationRepo) SaveNotification(ctx context.Context, n models.Notification) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO archived_notifications
            (id, title, message, notification_type, priority, is_read, created_at, action_url, action_text)
        VALUES (:id, :title, :message, :notification_type, :priority, :is_read, :created_at, :action_url, :action_text)
        ON CONFLICT (id) DO UPDATE SET is_read = EXCLUDED.is_read`, n)
	if err != nil {
		return fmt.Errorf("archive notification %s: %w", n.ID, err)
	}
	return nil
}

// MarkRead flags the given notifications as read in one statement.
func (r *NotificationRepo) MarkRead(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE archived_notifications SET is_read = TRUE WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}

// ListNotifications returns archived notifications, newest first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, `SELECT id, title, message, notification_type, priority, is_read, created_at, action_url, action_text
        FROM archived_notifications ORDER BY created_at DESC LIMIT $1`, limit)
	return list, err
}
