package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"chat-sync/internal/apierr"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
	"chat-sync/internal/ws"
)

// SessionMock stands in for the session behind the local HTTP API.
type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) Rooms() []models.Room {
	args := m.Called()
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms
}

func (m *SessionMock) Messages(roomName string) []models.Message {
	args := m.Called(roomName)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs
}

func (m *SessionMock) TypingUsers() map[int]models.TypingState {
	args := m.Called()
	var typing map[int]models.TypingState
	if val := args.Get(0); val != nil {
		typing = val.(map[int]models.TypingState)
	}
	return typing
}

func (m *SessionMock) Presence() map[int]models.UserStatus {
	args := m.Called()
	var presence map[int]models.UserStatus
	if val := args.Get(0); val != nil {
		presence = val.(map[int]models.UserStatus)
	}
	return presence
}

func (m *SessionMock) OnlineUsers() []models.User {
	args := m.Called()
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users
}

func (m *SessionMock) JoinRoom(ctx context.Context, roomName string) error {
	args := m.Called(ctx, roomName)
	return args.Error(0)
}

func (m *SessionMock) LeaveRoom(roomName string) {
	m.Called(roomName)
}

func (m *SessionMock) ReloadHistory(ctx context.Context, roomName string) error {
	args := m.Called(ctx, roomName)
	return args.Error(0)
}

func (m *SessionMock) SendMessage(ctx context.Context, content, roomName string) error {
	args := m.Called(ctx, content, roomName)
	return args.Error(0)
}

func (m *SessionMock) SendMessageWithFile(ctx context.Context, content, roomName, filename string, file io.Reader) error {
	args := m.Called(ctx, content, roomName, filename, file)
	return args.Error(0)
}

func (m *SessionMock) Typing(roomName string) {
	m.Called(roomName)
}

func (m *SessionMock) StopTyping(roomName string) {
	m.Called(roomName)
}

func (m *SessionMock) AddReaction(ctx context.Context, roomName string, messageID int, reactionType models.ReactionType) (models.Reaction, error) {
	args := m.Called(ctx, roomName, messageID, reactionType)
	var r models.Reaction
	if val := args.Get(0); val != nil {
		r = val.(models.Reaction)
	}
	return r, args.Error(1)
}

func (m *SessionMock) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *SessionMock) MarkMessageRead(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *SessionMock) CreateRoom(ctx context.Context, in models.CreateRoomRequest) (models.Room, error) {
	args := m.Called(ctx, in)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *SessionMock) GetActiveUsers(ctx context.Context, search string) ([]models.User, error) {
	args := m.Called(ctx, search)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *SessionMock) UploadFile(ctx context.Context, roomName, filename string, file io.Reader) (string, error) {
	args := m.Called(ctx, roomName, filename, file)
	return args.String(0), args.Error(1)
}

func (m *SessionMock) Notifications() []models.Notification {
	args := m.Called()
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list
}

func (m *SessionMock) UnreadCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *SessionMock) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionMock) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *SessionMock) ClearAllNotifications(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *SessionMock) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionMock) Error() *apierr.Error {
	args := m.Called()
	var err *apierr.Error
	if val := args.Get(0); val != nil {
		err = val.(*apierr.Error)
	}
	return err
}

func (m *SessionMock) ClearError() {
	m.Called()
}

func (m *SessionMock) Channels() map[string]ws.ChannelStatus {
	args := m.Called()
	var channels map[string]ws.ChannelStatus
	if val := args.Get(0); val != nil {
		channels = val.(map[string]ws.ChannelStatus)
	}
	return channels
}

func (m *SessionMock) Subscribe(buffer int) (<-chan store.Change, func()) {
	args := m.Called(buffer)
	var ch <-chan store.Change
	if val := args.Get(0); val != nil {
		ch = val.(<-chan store.Change)
	}
	cancel := func() {}
	if val := args.Get(1); val != nil {
		cancel = val.(func())
	}
	return ch, cancel
}
