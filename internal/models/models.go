package models

import "time"

// Profile is the participant summary owned by the wider profile subsystem.
// Read-only here.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Online      bool   `json:"online"`
}

// Name returns the display name if set, otherwise the username.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

type Conversation struct {
	ID             string    `json:"id"`
	ParticipantIDs []string  `json:"participant_ids"`
	Name           string    `json:"name,omitempty"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

// OtherParticipant returns the first participant that is not userID.
// Group conversations exist in the data model but the inbox treats every
// conversation as having exactly one counterpart.
func (c Conversation) OtherParticipant(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ReadBy         []string  `json:"read_by"`
}

// ReadByUser reports whether userID is in the read-by set. The sender is
// always considered to have read their own message.
func (m Message) ReadByUser(userID string) bool {
	if m.SenderID == userID {
		return true
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
