package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Trungnc273/ebay-be/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidParticipants  = errors.New("participants required (2 users)")
	ErrInvalidID            = errors.New("invalid identifier")
)

// ConversationRepository persists conversations. The participant set is
// immutable after creation; the only mutation is the last-activity bump.
type ConversationRepository interface {
	// Create normalizes (sorts) the participant list and persists a new
	// conversation. At least two distinct participants are required.
	Create(ctx context.Context, participants []string) (*domain.Conversation, error)
	// FindByParticipants matches the exact normalized participant set.
	// Returns ErrConversationNotFound when no conversation exists.
	FindByParticipants(ctx context.Context, participants []string) (*domain.Conversation, error)
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// Touch updates the last-activity marker and last-message pointer.
	// Best-effort: failures are logged, never returned.
	Touch(ctx context.Context, conversationID, lastMessageID string, at time.Time)
	// ListForParticipant returns conversations containing the user, newest
	// activity first, plus the total count.
	ListForParticipant(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int, error)
}

// MessageRepository persists the ordered message log. Messages are never
// deleted or edited; only the reader set grows.
type MessageRepository interface {
	// Append encrypts text and persists a new message. Conversation and
	// sender ids must be well-formed references (ErrInvalidID otherwise).
	Append(ctx context.Context, conversationID, senderID, text string, attachments domain.AttachmentList, productRef string) (*domain.Message, error)
	// ListByConversation returns messages newest first, decrypted, at most
	// limit (clamped to 200), optionally strictly older than before.
	ListByConversation(ctx context.Context, conversationID string, limit int, before *time.Time) ([]domain.Message, error)
	// MarkRead idempotently adds readerID to the message's reader set.
	MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, error)
	// MarkAllReadInConversation adds readerID to every message's reader set
	// in one conversation.
	MarkAllReadInConversation(ctx context.Context, conversationID, readerID string) error
}

// UserRepository resolves externally-owned user ids to display names.
type UserRepository interface {
	GetUsernames(ctx context.Context, ids []string) (map[string]string, error)
}
