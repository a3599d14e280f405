package repositories

import (
	"context"
	"log"

	"github.com/google/uuid"

	"chat-sync/internal/models"
	"chat-sync/internal/store"
)

// Archiver copies store changes into the archive tables.
type Archiver struct {
	messages      MessageRepository
	notifications NotificationRepository
	store         *store.Store

	// saved holds notification ids already inserted, so bulk changes only update read flags.
	saved map[uuid.UUID]bool
}

func NewArchiver(messages MessageRepository, notifications NotificationRepository, st *store.Store) *Archiver {
	return &Archiver{messages: messages, notifications: notifications, store: st, saved: make(map[uuid.UUID]bool)}
}

// Run subscribes to the store and archives until ctx is done.
func (a *Archiver) Run(ctx context.Context) {
	changes, cancel := a.store.Subscribe(256)
	defer cancel()
	log.Println("archiver started")
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := a.Apply(ctx, c); err != nil {
				log.Printf("archiver: %s change not archived: %v", c.Kind, err)
			}
		}
	}
}

// Apply archives a single change. Kinds without archived state are ignored.
func (a *Archiver) Apply(ctx context.Context, c store.Change) error {
	switch c.Kind {
	case store.ChangeMessageAppended, store.ChangeMessageUpdated:
		if c.Message == nil {
			return nil
		}
		return a.messages.SaveMessage(ctx, c.Room, *c.Message)
	case store.ChangeMessages:
		for _, msg := range a.store.Messages(c.Room) {
			if err := a.messages.SaveMessage(ctx, c.Room, msg); err != nil {
				return err
			}
		}
	case store.ChangeNotificationAdded:
		if c.Notification == nil {
			return nil
		}
		return a.saveNotification(ctx, *c.Notification)
	case store.ChangeNotifications:
		var read []uuid.UUID
		for _, n := range a.store.Notifications() {
			if !a.saved[n.ID] {
				if err := a.saveNotification(ctx, n); err != nil {
					return err
				}
				continue
			}
			if n.IsRead {
				read = append(read, n.ID)
			}
		}
		return a.notifications.MarkRead(ctx, read)
	}
	return nil
}

func (a *Archiver) saveNotification(ctx context.Context, n models.Notification) error {
	if err := a.notifications.SaveNotification(ctx, n); err != nil {
		return err
	}
	a.saved[n.ID] = true
	return nil
}
