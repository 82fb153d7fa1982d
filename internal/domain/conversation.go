package domain

import (
	"time"
)

// Participant is a conversation member with its resolved display name.
// The user record itself is owned by the account service; this core only
// reads id and username.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Conversation is a persisted record of a fixed participant set plus
// activity metadata. The participant set is immutable after creation and is
// kept sorted so that participant-set lookups are order-independent.
type Conversation struct {
	ID            string                 `json:"id"`
	Participants  []string               `json:"participants"`
	LastMessageID string                 `json:"lastMessage,omitempty"`
	LastMessageAt time.Time              `json:"lastMessageAt"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// ConversationView is a conversation with participant identities resolved
// to display names, as returned by the HTTP surface.
type ConversationView struct {
	ID            string                 `json:"id"`
	Participants  []Participant          `json:"participants"`
	LastMessageID string                 `json:"lastMessage,omitempty"`
	LastMessageAt time.Time              `json:"lastMessageAt"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Participants []string `json:"participants" binding:"required"`
}

// ListConversationsRequest carries pagination for the conversation list.
type ListConversationsRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}
