package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/repositories"
)

// ArchiveHandler serves the locally archived history.
type ArchiveHandler struct {
	messages      repositories.MessageRepository
	notifications repositories.NotificationRepository
}

func NewArchiveHandler(messages repositories.MessageRepository, notifications repositories.NotificationRepository) *ArchiveHandler {
	return &ArchiveHandler{messages: messages, notifications: notifications}
}

func (h *ArchiveHandler) Register(group gin.IRoutes) {
	group.GET("/archive/rooms/:room/messages", h.ListMessages)
	group.GET("/archive/notifications", h.ListNotifications)
}

func (h *ArchiveHandler) ListMessages(c *gin.Context) {
	msgs, err := h.messages.ListMessages(c.Request.Context(), c.Param("room"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load archived messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ArchiveHandler) ListNotifications(c *gin.Context) {
	list, err := h.notifications.ListNotifications(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load archived notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
