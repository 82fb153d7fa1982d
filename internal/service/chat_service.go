package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Trungnc273/ebay-be/internal/audit"
	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/internal/hub"
	"github.com/Trungnc273/ebay-be/internal/repository"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

type chatService struct {
	rooms         hub.Rooms
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func NewChatService(
	rooms hub.Rooms,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
) ChatService {
	return &chatService{
		rooms:         rooms,
		conversations: conversations,
		messages:      messages,
	}
}

// ack replies on the ack channel when the client asked for one.
func ack(client *hub.Client, event *domain.AckEvent) {
	if event.AckID == "" {
		return
	}
	client.SendEvent(event)
}

func (s *chatService) HandleIdentify(ctx context.Context, client *hub.Client, event *domain.IdentifyEvent) {
	if event.UserID == "" {
		return
	}
	client.Session.SetUserID(event.UserID)
	audit.Log(ctx, audit.ActionIdentify, event.UserID, client.ID, "connection identified")
}

func (s *chatService) HandleJoinRoom(ctx context.Context, client *hub.Client, event *domain.JoinRoomEvent) {
	if uuid.Validate(event.ConversationID) != nil {
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeInvalidConversationID))
		return
	}

	s.rooms.JoinRoom(client, event.ConversationID)
	if event.UserID != "" {
		client.Session.SetUserID(event.UserID)
	}

	audit.Log(ctx, audit.ActionJoinRoom, client.Session.UserID(), event.ConversationID, "joined conversation room")
	ack(client, domain.NewAck(event.AckID, nil))
}

func (s *chatService) HandleSendMessage(ctx context.Context, client *hub.Client, event *domain.SendMessageEvent) {
	l := log.Ctx(ctx)

	if uuid.Validate(event.ConversationID) != nil {
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeInvalidConversationID))
		return
	}
	if uuid.Validate(event.Sender) != nil {
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeInvalidSender))
		return
	}

	msg, err := s.messages.Append(ctx, event.ConversationID, event.Sender, event.Text, event.Attachments, event.ProductRef)
	if err != nil {
		l.Error().Err(err).
			Str(log.FieldConversationID, event.ConversationID).
			Msg("send_message persistence failed")
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeSendMessageFailed))
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeSendMessageFailed, err.Error()))
		return
	}

	// Bookkeeping only; the message is already persisted.
	s.conversations.Touch(ctx, event.ConversationID, msg.ID, msg.CreatedAt)

	payload := newMessagePayload(msg)
	if err := s.rooms.Broadcast(event.ConversationID, payload, ""); err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("broadcast failed")
	}

	audit.Log(ctx, audit.ActionSendMessage, event.Sender, msg.ID, "message sent")
	ack(client, domain.NewAck(event.AckID, payload))
}

func (s *chatService) HandleTyping(ctx context.Context, client *hub.Client, event *domain.TypingEvent) {
	if event.ConversationID == "" {
		return
	}

	// The originator already knows it is typing.
	s.rooms.Broadcast(event.ConversationID, &domain.UserTypingPayload{
		Type:           domain.EventUserTyping,
		ConversationID: event.ConversationID,
		UserID:         event.UserID,
	}, client.ID)
}

func (s *chatService) HandleMessageRead(ctx context.Context, client *hub.Client, event *domain.MessageReadEvent) {
	l := log.Ctx(ctx)

	if uuid.Validate(event.MessageID) != nil {
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeInvalidMessageID))
		return
	}

	readerID := event.UserID
	if readerID == "" {
		readerID = client.Session.UserID()
	}
	if readerID == "" {
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeMissingUser))
		return
	}

	msg, err := s.messages.MarkRead(ctx, event.MessageID, readerID)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			ack(client, domain.NewAckError(event.AckID, domain.ErrCodeMessageNotFound))
			return
		}
		l.Error().Err(err).Str(log.FieldMessageID, event.MessageID).Msg("message_read failed")
		ack(client, domain.NewAckError(event.AckID, domain.ErrCodeInternalError))
		return
	}

	// The broadcast targets the room named in the event payload, not the
	// room the message belongs to. Kept as-is; see DESIGN.md.
	status := &domain.ReadStatusPayload{
		Type:      domain.EventUpdateReadStatus,
		MessageID: msg.ID,
		ReadBy:    msg.ReadBy,
	}
	s.rooms.Broadcast(event.ConversationID, status, "")

	audit.Log(ctx, audit.ActionMessageRead, readerID, msg.ID, "message marked read")
	ack(client, domain.NewAck(event.AckID, map[string]interface{}{
		"messageId": msg.ID,
		"readBy":    msg.ReadBy,
	}))
}

func (s *chatService) HandleDisconnect(ctx context.Context, client *hub.Client) {
	audit.Log(ctx, audit.ActionDisconnect, client.Session.UserID(), client.ID, "connection closed")
}

func newMessagePayload(msg *domain.Message) *domain.NewMessagePayload {
	return &domain.NewMessagePayload{
		Type:           domain.EventNewMessage,
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         msg.SenderID,
		Text:           msg.Text,
		Attachments:    msg.Attachments,
		ProductRef:     msg.ProductRef,
		ReadBy:         msg.ReadBy,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
