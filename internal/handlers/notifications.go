package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-sync/internal/models"
)

// NotificationSession is the notification part of the session.
type NotificationSession interface {
	Notifications() []models.Notification
	UnreadCount() int
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context) (int, error)
	ClearAllNotifications(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

type NotificationHandler struct {
	session NotificationSession
}

func NewNotificationHandler(session NotificationSession) *NotificationHandler {
	return &NotificationHandler{session: session}
}

func (h *NotificationHandler) Register(group gin.IRoutes) {
	group.GET("/notifications", h.List)
	group.GET("/notifications/unread-count", h.UnreadCount)
	group.POST("/notifications/read-all", h.MarkAllRead)
	group.POST("/notifications/clear", h.ClearAll)
	group.POST("/notifications/:id/read", h.MarkRead)
	group.DELETE("/notifications/:id", h.Delete)
}

func (h *NotificationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.session.Notifications(),
		"unread_count":  h.session.UnreadCount(),
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"unread_count": h.session.UnreadCount()})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.session.MarkNotificationRead(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": h.session.UnreadCount()})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	marked, err := h.session.MarkAllNotificationsRead(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": marked})
}

// ClearAll deletes read notifications.
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	deleted, err := h.session.ClearAllNotifications(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.session.DeleteNotification(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
