package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/models"
)

// ChatSession is the chat part of the session the local API serves.
type ChatSession interface {
	Rooms() []models.Room
	Messages(roomName string) []models.Message
	TypingUsers() map[int]models.TypingState
	Presence() map[int]models.UserStatus
	OnlineUsers() []models.User
	JoinRoom(ctx context.Context, roomName string) error
	LeaveRoom(roomName string)
	ReloadHistory(ctx context.Context, roomName string) error
	SendMessage(ctx context.Context, content, roomName string) error
	SendMessageWithFile(ctx context.Context, content, roomName, filename string, file io.Reader) error
	Typing(roomName string)
	StopTyping(roomName string)
	AddReaction(ctx context.Context, roomName string, messageID int, reactionType models.ReactionType) (models.Reaction, error)
	EditMessage(ctx context.Context, messageID int, content string) (models.Message, error)
	MarkMessageRead(ctx context.Context, messageID int) error
	CreateRoom(ctx context.Context, in models.CreateRoomRequest) (models.Room, error)
	GetActiveUsers(ctx context.Context, search string) ([]models.User, error)
	UploadFile(ctx context.Context, roomName, filename string, file io.Reader) (string, error)
}

// ChatHandler serves rooms, messages, typing and presence.
type ChatHandler struct {
	session ChatSession
}

func NewChatHandler(session ChatSession) *ChatHandler {
	return &ChatHandler{session: session}
}

// Register mounts the chat routes on group.
func (h *ChatHandler) Register(group gin.IRoutes) {
	group.GET("/rooms", h.ListRooms)
	group.POST("/rooms", h.CreateRoom)
	group.POST("/rooms/:room/join", h.JoinRoom)
	group.POST("/rooms/:room/leave", h.LeaveRoom)
	group.POST("/rooms/:room/history/reload", h.ReloadHistory)
	group.GET("/rooms/:room/messages", h.ListMessages)
	group.POST("/rooms/:room/messages", h.PostMessage)
	group.POST("/rooms/:room/typing", h.SetTyping)
	group.POST("/rooms/:room/messages/:message_id/reactions", h.AddReaction)
	group.PUT("/messages/:message_id", h.EditMessage)
	group.POST("/messages/:message_id/read", h.MarkMessageRead)
	group.GET("/typing", h.ListTyping)
	group.GET("/presence", h.ListPresence)
	group.GET("/users/active", h.ActiveUsers)
	group.POST("/uploads", h.Upload)
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.session.Rooms()})
}

func (h *ChatHandler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room, err := h.session.CreateRoom(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// JoinRoom loads history and opens the room channel.
func (h *ChatHandler) JoinRoom(c *gin.Context) {
	room := c.Param("room")
	if err := h.session.JoinRoom(c.Request.Context(), room); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "messages": len(h.session.Messages(room))})
}

func (h *ChatHandler) LeaveRoom(c *gin.Context) {
	h.session.LeaveRoom(c.Param("room"))
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) ReloadHistory(c *gin.Context) {
	room := c.Param("room")
	if err := h.session.ReloadHistory(c.Request.Context(), room); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": h.session.Messages(room)})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.session.Messages(c.Param("room"))})
}

// PostMessage sends a message. A multipart body with a "file" part sends an attachment.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	room := c.Param("room")

	if c.ContentType() == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer f.Close()
		if err := h.session.SendMessageWithFile(c.Request.Context(), c.PostForm("message"), room, fh.Filename, f); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.SendMessage(c.Request.Context(), req.Message, room); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *ChatHandler) SetTyping(c *gin.Context) {
	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IsTyping {
		h.session.Typing(c.Param("room"))
	} else {
		h.session.StopTyping(c.Param("room"))
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) AddReaction(c *gin.Context) {
	messageID, ok := intParam(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		ReactionType models.ReactionType `json:"reaction_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reaction, err := h.session.AddReaction(c.Request.Context(), c.Param("room"), messageID, req.ReactionType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reaction)
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	messageID, ok := intParam(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.session.EditMessage(c.Request.Context(), messageID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	messageID, ok := intParam(c, "message_id")
	if !ok {
		return
	}
	if err := h.session.MarkMessageRead(c.Request.Context(), messageID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) ListTyping(c *gin.Context) {
	typing := make([]models.User, 0)
	for _, st := range h.session.TypingUsers() {
		if st.IsTyping {
			typing = append(typing, st.User)
		}
	}
	c.JSON(http.StatusOK, gin.H{"typing": typing})
}

func (h *ChatHandler) ListPresence(c *gin.Context) {
	statuses := make([]models.UserStatus, 0)
	for _, st := range h.session.Presence() {
		statuses = append(statuses, st)
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses, "online": h.session.OnlineUsers()})
}

func (h *ChatHandler) ActiveUsers(c *gin.Context) {
	users, err := h.session.GetActiveUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *ChatHandler) Upload(c *gin.Context) {
	room := c.PostForm("room_name")
	fh, err := c.FormFile("file")
	if err != nil || room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file and room_name are required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	fileURL, err := h.session.UploadFile(c.Request.Context(), room, fh.Filename, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_url": fileURL})
}
