package entities

import "time"

// ViewingParty is a group watching the same video under a host's control
type ViewingParty struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	InviteCode  string    `json:"inviteCode"`
	HostID      string    `json:"hostId"`
	HostName    string    `json:"hostName"`
	VideoURL    string    `json:"videoUrl"`
	VideoTitle  string    `json:"videoTitle"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
	MemberCount int       `json:"memberCount"`
	CurrentTime float64   `json:"currentTime"`
	IsPlaying   bool      `json:"isPlaying"`
	LastSync    time.Time `json:"lastSync"`
}

// PartyMember is a viewer's membership in a party
type PartyMember struct {
	PartyID   string    `json:"partyId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// PlaybackState is the host's latest player position
type PlaybackState struct {
	PartyID     string    `json:"partyId"`
	CurrentTime float64   `json:"currentTime"`
	IsPlaying   bool      `json:"isPlaying"`
	VideoURL    string    `json:"videoUrl"`
	VideoTitle  string    `json:"videoTitle"`
	Timestamp   time.Time `json:"timestamp"`
}
