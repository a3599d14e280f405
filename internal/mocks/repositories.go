package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"chat-sync/internal/models"
	"chat-sync/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) SaveMessage(ctx context.Context, roomName string, msg models.Message) error {
	args := m.Called(ctx, roomName, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, roomName string, limit int) ([]repositories.ArchivedMessage, error) {
	args := m.Called(ctx, roomName, limit)
	var msgs []repositories.ArchivedMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]repositories.ArchivedMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, roomName string, id int) (repositories.ArchivedMessage, error) {
	args := m.Called(ctx, roomName, id)
	var msg repositories.ArchivedMessage
	if val := args.Get(0); val != nil {
		msg = val.(repositories.ArchivedMessage)
	}
	return msg, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) SaveNotification(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}
