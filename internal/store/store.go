// Package store holds the client-side state synchronized from REST history and realtime frames.
package store

import (
	"sync"

	"chat-sync/internal/apierr"
	"chat-sync/internal/models"
)

// Store is the single owner of rooms, messages, typing, presence, notifications and the error slot.
// Readers always receive copies. Reads for unknown keys return empty values.
type Store struct {
	mu            sync.RWMutex
	rooms         []models.Room
	messages      map[string][]models.Message
	messageIndex  map[string]map[int]int
	typing        map[int]models.TypingState
	presence      map[int]models.UserStatus
	notifications []models.Notification
	unread        int
	lastErr       *apierr.Error

	subsMu  sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		messages:     make(map[string][]models.Message),
		messageIndex: make(map[string]map[int]int),
		typing:       make(map[int]models.TypingState),
		presence:     make(map[int]models.UserStatus),
		subs:         make(map[int]chan Change),
	}
}

// SetRooms replaces the room list.
func (s *Store) SetRooms(rooms []models.Room) {
	s.mu.Lock()
	s.rooms = append([]models.Room(nil), rooms...)
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeRooms})
}

// AddRoom appends a room, replacing an existing room with the same name.
func (s *Store) AddRoom(room models.Room) {
	s.mu.Lock()
	replaced := false
	for i := range s.rooms {
		if s.rooms[i].Name == room.Name {
			s.rooms[i] = room
			replaced = true
			break
		}
	}
	if !replaced {
		s.rooms = append(s.rooms, room)
	}
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeRooms, Room: room.Name})
}

// Rooms returns the loaded rooms.
func (s *Store) Rooms() []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Room{}, s.rooms...)
}

// Room looks up a room by name.
func (s *Store) Room(name string) (models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.Name == name {
			return r, true
		}
	}
	return models.Room{}, false
}

// RoomNameByID resolves a room id carried in a frame to its routing name.
func (s *Store) RoomNameByID(id int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.ID == id {
			return r.Name, true
		}
	}
	return "", false
}
