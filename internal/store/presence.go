package store

import "chat-sync/internal/models"

// SetTyping upserts the typing state of a user.
func (s *Store) SetTyping(state models.TypingState) {
	s.mu.Lock()
	s.typing[state.User.ID] = state
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeTyping})
}

// Typing returns the typing map keyed by user id.
func (s *Store) Typing() map[int]models.TypingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.TypingState, len(s.typing))
	for k, v := range s.typing {
		out[k] = v
	}
	return out
}

// SetPresence upserts the status of a user. The last write wins.
func (s *Store) SetPresence(status models.UserStatus) {
	s.mu.Lock()
	s.presence[status.User.ID] = status
	s.mu.Unlock()
	s.publish(Change{Kind: ChangePresence})
}

// Presence returns the presence map keyed by user id.
func (s *Store) Presence() map[int]models.UserStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.UserStatus, len(s.presence))
	for k, v := range s.presence {
		out[k] = v
	}
	return out
}

// OnlineUsers lists users whose last known status is online.
func (s *Store) OnlineUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0)
	for _, st := range s.presence {
		if st.Status == models.StatusOnline {
			users = append(users, st.User)
		}
	}
	return users
}
