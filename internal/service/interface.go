package service

import (
	"context"
	"time"

	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/internal/hub"
)

// ChatService is the socket event state machine: identify, join, send,
// typing, read receipts. Every handler reports failures through the ack
// channel and must leave the connection alive.
type ChatService interface {
	HandleIdentify(ctx context.Context, client *hub.Client, event *domain.IdentifyEvent)
	HandleJoinRoom(ctx context.Context, client *hub.Client, event *domain.JoinRoomEvent)
	HandleSendMessage(ctx context.Context, client *hub.Client, event *domain.SendMessageEvent)
	HandleTyping(ctx context.Context, client *hub.Client, event *domain.TypingEvent)
	HandleMessageRead(ctx context.Context, client *hub.Client, event *domain.MessageReadEvent)
	HandleDisconnect(ctx context.Context, client *hub.Client)
}

// ConversationService backs the HTTP surface: listing, find-or-create,
// history pages, bulk read-marking.
type ConversationService interface {
	List(ctx context.Context, userID string, page, limit int) ([]domain.ConversationView, int, error)
	Get(ctx context.Context, id string) (*domain.ConversationView, error)
	// FindOrCreate returns the conversation for the participant set,
	// creating it when absent. The second return reports whether a new
	// conversation was created.
	FindOrCreate(ctx context.Context, participants []string) (*domain.ConversationView, bool, error)
	GetMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]domain.Message, error)
	MarkAllRead(ctx context.Context, conversationID, userID string) error
}
