package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"chat-sync/internal/models"
	"chat-sync/internal/ws"
)

// BackendMock stands in for the REST client.
type BackendMock struct {
	mock.Mock
}

func (m *BackendMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *BackendMock) CreateRoom(ctx context.Context, in models.CreateRoomRequest) (models.Room, error) {
	args := m.Called(ctx, in)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *BackendMock) MessageHistory(ctx context.Context, roomName string) ([]models.Message, error) {
	args := m.Called(ctx, roomName)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *BackendMock) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *BackendMock) MarkMessageRead(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *BackendMock) AddReaction(ctx context.Context, messageID int, reactionType models.ReactionType) (models.Reaction, error) {
	args := m.Called(ctx, messageID, reactionType)
	var r models.Reaction
	if val := args.Get(0); val != nil {
		r = val.(models.Reaction)
	}
	return r, args.Error(1)
}

func (m *BackendMock) UploadFile(ctx context.Context, roomName, filename string, content io.Reader) (string, error) {
	args := m.Called(ctx, roomName, filename, content)
	return args.String(0), args.Error(1)
}

func (m *BackendMock) ActiveUsers(ctx context.Context, search string) ([]models.User, error) {
	args := m.Called(ctx, search)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *BackendMock) Notifications(ctx context.Context) ([]models.Notification, error) {
	args := m.Called(ctx)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *BackendMock) UnreadNotificationCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *BackendMock) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *BackendMock) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *BackendMock) ClearAllNotifications(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *BackendMock) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ConnectorMock records channel opens.
type ConnectorMock struct {
	mock.Mock
}

func (m *ConnectorMock) Connect(ctx context.Context, key ws.ChannelKey) (*ws.Handle, error) {
	args := m.Called(ctx, key)
	var h *ws.Handle
	if val := args.Get(0); val != nil {
		h = val.(*ws.Handle)
	}
	return h, args.Error(1)
}

// SocketMock records outbound frames.
type SocketMock struct {
	mock.Mock
}

func (m *SocketMock) Send(key ws.ChannelKey, frame any) error {
	args := m.Called(key, frame)
	return args.Error(0)
}

func (m *SocketMock) State(key ws.ChannelKey) ws.State {
	args := m.Called(key)
	return args.Get(0).(ws.State)
}
