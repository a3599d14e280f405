// Package history seeds the store from REST and reconciles it after reconnects.
package history

import (
	"context"
	"log"

	"chat-sync/internal/apierr"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
	"chat-sync/internal/ws"
)

// Backend is the part of the REST client history loading needs.
type Backend interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	MessageHistory(ctx context.Context, roomName string) ([]models.Message, error)
	Notifications(ctx context.Context) ([]models.Notification, error)
	UnreadNotificationCount(ctx context.Context) (int, error)
}

// Connector opens supervised channels.
type Connector interface {
	Connect(ctx context.Context, key ws.ChannelKey) (*ws.Handle, error)
}

type Loader struct {
	backend Backend
	conn    Connector
	store   *store.Store
}

func NewLoader(backend Backend, conn Connector, st *store.Store) *Loader {
	return &Loader{backend: backend, conn: conn, store: st}
}

// LoadRooms replaces the room list.
func (l *Loader) LoadRooms(ctx context.Context) error {
	rooms, err := l.backend.ListRooms(ctx)
	if err != nil {
		return l.fail("load rooms", err)
	}
	l.store.SetRooms(rooms)
	return nil
}

// LoadMessageHistory replaces the message list of roomName with the server history.
func (l *Loader) LoadMessageHistory(ctx context.Context, roomName string) error {
	msgs, err := l.backend.MessageHistory(ctx, roomName)
	if err != nil {
		return l.fail("load history "+roomName, err)
	}
	l.store.ReplaceMessages(roomName, msgs)
	log.Printf("history: loaded room=%s messages=%d", roomName, len(msgs))
	return nil
}

// LoadNotifications replaces the notification list.
func (l *Loader) LoadNotifications(ctx context.Context) error {
	list, err := l.backend.Notifications(ctx)
	if err != nil {
		return l.fail("load notifications", err)
	}
	l.store.SetNotifications(list)
	return nil
}

// LoadUnreadCount overwrites the unread counter.
func (l *Loader) LoadUnreadCount(ctx context.Context) error {
	n, err := l.backend.UnreadNotificationCount(ctx)
	if err != nil {
		return l.fail("load unread count", err)
	}
	l.store.SetUnreadCount(n)
	return nil
}

// JoinRoom applies the room history before the room channel is opened, so live frames land after it.
func (l *Loader) JoinRoom(ctx context.Context, roomName string) error {
	if err := l.LoadMessageHistory(ctx, roomName); err != nil {
		return err
	}
	if _, err := l.conn.Connect(ctx, ws.ChatKey(roomName)); err != nil {
		return l.fail("join "+roomName, err)
	}
	return nil
}

// ResyncRoom merges history fetched after a reconnect, appending only messages missed while offline.
func (l *Loader) ResyncRoom(ctx context.Context, roomName string) (int, error) {
	msgs, err := l.backend.MessageHistory(ctx, roomName)
	if err != nil {
		return 0, l.fail("resync "+roomName, err)
	}
	added := l.store.MergeMessages(roomName, msgs)
	if added > 0 {
		log.Printf("history: resync room=%s recovered=%d", roomName, added)
	}
	return added, nil
}

// ResyncNotifications reloads notifications and the unread counter after the notification channel reconnects.
func (l *Loader) ResyncNotifications(ctx context.Context) error {
	if err := l.LoadNotifications(ctx); err != nil {
		return err
	}
	return l.LoadUnreadCount(ctx)
}

func (l *Loader) fail(op string, err error) *apierr.Error {
	apiErr := apierr.From(op, err)
	l.store.SetError(apiErr)
	return apiErr
}
