package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"chat-sync/internal/models"
)

// Notifications lists the user's notifications.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var p page[models.Notification]
	req, _ := jsonRequest("fetch notifications", http.MethodGet, "notifications/", nil)
	if err := c.do(ctx, req, &p); err != nil {
		return nil, err
	}
	return p.Items, nil
}

// UnreadNotificationCount returns the authoritative unread counter.
func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	req, _ := jsonRequest("fetch unread notification count", http.MethodGet, "notifications/unread-count/", nil)
	err := c.do(ctx, req, &out)
	return out.Count, err
}

// MarkNotificationRead marks one notification read. The backend accepts repeats.
func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	req, _ := jsonRequest("mark notification as read", http.MethodPost, "notifications/"+id.String()+"/mark-read/", nil)
	return c.do(ctx, req, nil)
}

// MarkAllNotificationsRead marks every notification read and returns how many changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	var out struct {
		MarkedRead int `json:"marked_read"`
	}
	req, _ := jsonRequest("mark all notifications as read", http.MethodPost, "notifications/mark-all-read/", map[string]any{})
	err := c.do(ctx, req, &out)
	return out.MarkedRead, err
}

// ClearAllNotifications deletes every read notification and returns how many were removed.
func (c *Client) ClearAllNotifications(ctx context.Context) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	req, _ := jsonRequest("clear notifications", http.MethodPost, "notifications/clear-all/", map[string]any{})
	err := c.do(ctx, req, &out)
	return out.Deleted, err
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	req, _ := jsonRequest("delete notification", http.MethodDelete, "notifications/"+id.String()+"/", nil)
	return c.do(ctx, req, nil)
}
