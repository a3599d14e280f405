package models

import "time"

// RoomType classifies a chat room.
type RoomType string

const (
	RoomOneToOne RoomType = "ONE_TO_ONE"
	RoomGroup    RoomType = "GROUP"
	RoomSupport  RoomType = "SUPPORT"
)

// User is the public profile attached to messages, reactions and presence frames.
type User struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Fullname  string  `json:"fullname"`
	Role      string  `json:"role"`
	Avatar    *string `json:"avatar"`
	IsActive  bool    `json:"is_active"`
}

// Room represents a named chat context. Name is the routing key for channels and history.
type Room struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	RoomType     RoomType  `json:"room_type"`
	Participants []User    `json:"participants"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateRoomRequest is the body of the room creation call. Participants are emails.
type CreateRoomRequest struct {
	Name         string   `json:"name"`
	RoomType     RoomType `json:"room_type"`
	Participants []string `json:"participants"`
}
