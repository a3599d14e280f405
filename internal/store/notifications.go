package store

import (
	"github.com/google/uuid"

	"chat-sync/internal/models"
)

// SetNotifications replaces the notification list.
func (s *Store) SetNotifications(list []models.Notification) {
	s.mu.Lock()
	s.notifications = append([]models.Notification(nil), list...)
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeNotifications})
}

// AddNotification appends n, replacing an entry with the same id.
func (s *Store) AddNotification(n models.Notification) {
	s.mu.Lock()
	replaced := false
	for i := range s.notifications {
		if s.notifications[i].ID == n.ID {
			s.notifications[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		s.notifications = append(s.notifications, n)
	}
	s.mu.Unlock()
	added := n
	s.publish(Change{Kind: ChangeNotificationAdded, Notification: &added})
}

// Notifications returns the notification list.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification{}, s.notifications...)
}

// Notification looks up a notification by id.
func (s *Store) Notification(id uuid.UUID) (models.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifications {
		if n.ID == id {
			return n, true
		}
	}
	return models.Notification{}, false
}

// SetUnreadCount overwrites the unread counter with an authoritative value, floored at zero.
func (s *Store) SetUnreadCount(n int) {
	s.mu.Lock()
	s.unread = max(0, n)
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeUnread})
}

// UnreadCount returns the unread counter.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// MarkNotificationRead flips a notification to read. It returns true only on an unread to read
// transition, in which case the counter is decremented.
func (s *Store) MarkNotificationRead(id uuid.UUID) bool {
	s.mu.Lock()
	changed := false
	for i := range s.notifications {
		if s.notifications[i].ID == id && !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			s.unread = max(0, s.unread-1)
			changed = true
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.publish(Change{Kind: ChangeNotifications})
	}
	return changed
}

// MarkAllNotificationsRead flips every notification to read and zeroes the counter.
func (s *Store) MarkAllNotificationsRead() int {
	s.mu.Lock()
	marked := 0
	for i := range s.notifications {
		if !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			marked++
		}
	}
	s.unread = 0
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeNotifications})
	return marked
}

// RemoveNotification deletes a notification. Removing an unread one decrements the counter.
func (s *Store) RemoveNotification(id uuid.UUID) bool {
	s.mu.Lock()
	removed := false
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if !s.notifications[i].IsRead {
			s.unread = max(0, s.unread-1)
		}
		s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
		removed = true
		break
	}
	s.mu.Unlock()
	if removed {
		s.publish(Change{Kind: ChangeNotifications})
	}
	return removed
}

// RemoveReadNotifications drops every read notification.
func (s *Store) RemoveReadNotifications() int {
	s.mu.Lock()
	kept := s.notifications[:0]
	removed := 0
	for _, n := range s.notifications {
		if n.IsRead {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeNotifications})
	return removed
}
