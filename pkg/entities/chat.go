package entities

import "time"

// ChatMessage is one line in the community room or a party's room
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	PartyID   string    `json:"partyId,omitempty"`
}

// ChatRoom is the recent history of a room
type ChatRoom struct {
	PartyID      string        `json:"partyId,omitempty"`
	Messages     []ChatMessage `json:"messages"`
	Participants int           `json:"participants"` // distinct authors in Messages
}
