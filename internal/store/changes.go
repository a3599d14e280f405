package store

import (
	"log"

	"chat-sync/internal/models"
)

// ChangeKind names the slice of state a Change refers to.
type ChangeKind string

const (
	ChangeRooms             ChangeKind = "rooms"
	ChangeMessages          ChangeKind = "messages"
	ChangeMessageAppended   ChangeKind = "message_appended"
	ChangeMessageUpdated    ChangeKind = "message_updated"
	ChangeTyping            ChangeKind = "typing"
	ChangePresence          ChangeKind = "presence"
	ChangeNotifications     ChangeKind = "notifications"
	ChangeNotificationAdded ChangeKind = "notification_added"
	ChangeUnread            ChangeKind = "unread"
	ChangeError             ChangeKind = "error"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind         ChangeKind
	Room         string
	Message      *models.Message
	Notification *models.Notification
}

// Subscribe registers a change listener. Slow subscribers miss changes rather than block writers.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Store) publish(c Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- c:
		default:
			log.Printf("store: subscriber %d lagging, dropped %s change", id, c.Kind)
		}
	}
}
