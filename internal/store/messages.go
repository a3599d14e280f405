package store

import "chat-sync/internal/models"

// ReplaceMessages replaces a room's history. Later duplicates of an id are dropped.
func (s *Store) ReplaceMessages(room string, msgs []models.Message) {
	s.mu.Lock()
	list := make([]models.Message, 0, len(msgs))
	index := make(map[int]int, len(msgs))
	for _, m := range msgs {
		if _, dup := index[m.ID]; dup {
			continue
		}
		index[m.ID] = len(list)
		list = append(list, m.Clone())
	}
	s.messages[room] = list
	s.messageIndex[room] = index
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeMessages, Room: room})
}

// AppendMessage appends msg in arrival order. It returns false when the id is already present.
func (s *Store) AppendMessage(room string, msg models.Message) bool {
	s.mu.Lock()
	if !s.appendLocked(room, msg) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	m := msg.Clone()
	s.publish(Change{Kind: ChangeMessageAppended, Room: room, Message: &m})
	return true
}

// MergeMessages appends every message whose id is not yet present, in the given order.
func (s *Store) MergeMessages(room string, msgs []models.Message) int {
	s.mu.Lock()
	added := make([]models.Message, 0)
	for _, m := range msgs {
		if s.appendLocked(room, m) {
			added = append(added, m.Clone())
		}
	}
	s.mu.Unlock()
	for i := range added {
		s.publish(Change{Kind: ChangeMessageAppended, Room: room, Message: &added[i]})
	}
	return len(added)
}

func (s *Store) appendLocked(room string, msg models.Message) bool {
	index, ok := s.messageIndex[room]
	if !ok {
		index = make(map[int]int)
		s.messageIndex[room] = index
	}
	if _, dup := index[msg.ID]; dup {
		return false
	}
	index[msg.ID] = len(s.messages[room])
	s.messages[room] = append(s.messages[room], msg.Clone())
	return true
}

// Messages returns a room's messages in arrival order.
func (s *Store) Messages(room string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[room]
	out := make([]models.Message, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}

// FindMessage locates a message by id across every loaded room.
func (s *Store) FindMessage(id int) (string, models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for room, index := range s.messageIndex {
		if i, ok := index[id]; ok {
			return room, s.messages[room][i].Clone(), true
		}
	}
	return "", models.Message{}, false
}

// UpsertReaction records r on its message, replacing any reaction by the same user.
// It returns the room holding the message, or false when no loaded room has it.
func (s *Store) UpsertReaction(r models.Reaction) (string, bool) {
	s.mu.Lock()
	room, i, ok := s.locateLocked(r.Message)
	if !ok {
		s.mu.Unlock()
		return "", false
	}
	msg := &s.messages[room][i]
	replaced := false
	for j := range msg.Reactions {
		if msg.Reactions[j].User.ID == r.User.ID {
			msg.Reactions[j] = r
			replaced = true
			break
		}
	}
	if !replaced {
		msg.Reactions = append(msg.Reactions, r)
	}
	updated := msg.Clone()
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeMessageUpdated, Room: room, Message: &updated})
	return room, true
}

// UpdateMessage applies fn to the stored message with the given id.
func (s *Store) UpdateMessage(id int, fn func(*models.Message)) bool {
	s.mu.Lock()
	room, i, ok := s.locateLocked(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(&s.messages[room][i])
	s.messages[room][i].ID = id
	updated := s.messages[room][i].Clone()
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeMessageUpdated, Room: room, Message: &updated})
	return true
}

func (s *Store) locateLocked(id int) (string, int, bool) {
	for room, index := range s.messageIndex {
		if i, ok := index[id]; ok {
			return room, i, true
		}
	}
	return "", 0, false
}
