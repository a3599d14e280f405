package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/apierr"
	"chat-sync/internal/store"
	"chat-sync/internal/ws"
)

// StatusSession exposes connection state, the error slot and the change stream.
type StatusSession interface {
	Error() *apierr.Error
	ClearError()
	Channels() map[string]ws.ChannelStatus
	Subscribe(buffer int) (<-chan store.Change, func())
}

type StatusHandler struct {
	session StatusSession
}

func NewStatusHandler(session StatusSession) *StatusHandler {
	return &StatusHandler{session: session}
}

func (h *StatusHandler) Register(group gin.IRoutes) {
	group.GET("/status/error", h.GetError)
	group.DELETE("/status/error", h.ClearError)
	group.GET("/status/channels", h.Channels)
	group.GET("/events", h.Events)
}

func (h *StatusHandler) GetError(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"error": h.session.Error()})
}

func (h *StatusHandler) ClearError(c *gin.Context) {
	h.session.ClearError()
	c.Status(http.StatusNoContent)
}

func (h *StatusHandler) Channels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.session.Channels()})
}

type changeEvent struct {
	Kind string `json:"kind"`
	Room string `json:"room,omitempty"`
}

// Events streams store changes as server-sent events until the client goes away.
func (h *StatusHandler) Events(c *gin.Context) {
	changes, cancel := h.session.Subscribe(64)
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("change", changeEvent{Kind: string(change.Kind), Room: change.Room})
			return true
		}
	})
}
