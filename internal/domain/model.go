package domain

import (
	"strings"
	"time"

	"github.com/Trungnc273/ebay-be/pkg/database"
)

// ConversationModel is the GORM model for the conversations table.
type ConversationModel struct {
	ID string `gorm:"type:varchar(36);primaryKey"`
	// Participants holds the sorted participant ids; ParticipantsKey is the
	// same set joined with "," and is what participant-set lookups match on.
	// There is deliberately no uniqueness constraint on it (see DESIGN.md).
	Participants    database.StringArray `gorm:"type:text;not null"`
	ParticipantsKey string               `gorm:"type:text;index;not null"`
	LastMessageID   *string              `gorm:"type:varchar(36)"`
	LastMessageAt   time.Time            `gorm:"index;not null"`
	Meta            database.JSONMap     `gorm:"type:text"`
	CreatedAt       time.Time            `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ConversationModel.
func (ConversationModel) TableName() string {
	return "conversations"
}

// ParticipantsKeyFor builds the normalized lookup key for a sorted
// participant list.
func ParticipantsKeyFor(sorted []string) string {
	return strings.Join(sorted, ",")
}

// ToDomain converts ConversationModel to a domain Conversation.
func (m *ConversationModel) ToDomain() *Conversation {
	c := &Conversation{
		ID:            m.ID,
		Participants:  []string(m.Participants),
		LastMessageAt: m.LastMessageAt,
		Meta:          map[string]interface{}(m.Meta),
		CreatedAt:     m.CreatedAt,
	}
	if m.LastMessageID != nil {
		c.LastMessageID = *m.LastMessageID
	}
	return c
}

// MessageModel is the GORM model for the messages table. Text holds the
// ciphertext envelope, never plaintext.
type MessageModel struct {
	ID             string               `gorm:"type:varchar(36);primaryKey"`
	ConversationID string               `gorm:"type:varchar(36);index:idx_messages_conv_created;not null"`
	SenderID       string               `gorm:"type:varchar(36);index;not null"`
	Text           string               `gorm:"type:text"`
	Attachments    AttachmentList       `gorm:"type:text"`
	ProductRef     *string              `gorm:"type:varchar(36)"`
	ReadBy         database.StringArray `gorm:"type:text"`
	DeliveredAt    *time.Time
	SeenAt         *time.Time
	CreatedAt      time.Time `gorm:"index:idx_messages_conv_created;not null"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to a domain Message. The text still holds
// the ciphertext envelope; decryption happens in the repository.
func (m *MessageModel) ToDomain() *Message {
	msg := &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Attachments:    m.Attachments,
		ReadBy:         []string(m.ReadBy),
		DeliveredAt:    m.DeliveredAt,
		SeenAt:         m.SeenAt,
		CreatedAt:      m.CreatedAt,
	}
	if msg.Attachments == nil {
		msg.Attachments = AttachmentList{}
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}
	if m.ProductRef != nil {
		msg.ProductRef = *m.ProductRef
	}
	return msg
}

// UserModel is a read-only view over the users table, owned by the account
// service. This core only resolves ids to display names.
type UserModel struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	Username string `gorm:"type:varchar(50);not null"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}
