package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Trungnc273/ebay-be/internal/config"
	"github.com/Trungnc273/ebay-be/internal/crypto"
	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/internal/hub"
	"github.com/Trungnc273/ebay-be/internal/repository"
	"github.com/Trungnc273/ebay-be/pkg/database"
)

type chatFixture struct {
	db       *gorm.DB
	codec    *crypto.Codec
	hub      *hub.Hub
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	svc      ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db,
		&domain.ConversationModel{},
		&domain.MessageModel{},
	))

	codec := crypto.NewCodec("chat_service_test_key")
	wsHub := hub.NewHub(testWSConfig())
	go wsHub.Run()

	convRepo := repository.NewGormConversationRepository(db)
	msgRepo := repository.NewGormMessageRepository(db, codec)

	return &chatFixture{
		db:       db,
		codec:    codec,
		hub:      wsHub,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		svc:      NewChatService(wsHub, convRepo, msgRepo),
	}
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 8192,
	}
}

func (f *chatFixture) newClient(id string) *hub.Client {
	c := hub.NewClient(id, f.hub, nil, testWSConfig())
	f.hub.Register(c)
	return c
}

// recvEvent scans the client's send queue for the first event of the given
// type, discarding others.
func recvEvent(t *testing.T, c *hub.Client, eventType string) map[string]interface{} {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case data := <-c.Send:
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &payload))
			if payload["type"] == eventType {
				return payload
			}
		case <-deadline:
			t.Fatalf("no %q event received", eventType)
			return nil
		}
	}
}

func expectSilence(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected payload: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinRoomInvalidConversationID(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	c := f.newClient("a")

	f.svc.HandleJoinRoom(ctx, c, &domain.JoinRoomEvent{
		Type:           domain.EventJoinRoom,
		AckID:          "1",
		ConversationID: "not-a-valid-id",
	})

	ackEvent := recvEvent(t, c, domain.EventAck)
	assert.Equal(t, false, ackEvent["ok"])
	assert.Equal(t, domain.ErrCodeInvalidConversationID, ackEvent["error"])
	assert.False(t, f.hub.InRoom(c.ID, "not-a-valid-id"), "no room may be registered")
}

func TestJoinRoomRegistersAndUpdatesIdentity(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	c := f.newClient("a")
	convID := uuid.New().String()
	userID := uuid.New().String()

	f.svc.HandleJoinRoom(ctx, c, &domain.JoinRoomEvent{
		Type:           domain.EventJoinRoom,
		AckID:          "1",
		ConversationID: convID,
		UserID:         userID,
	})

	ackEvent := recvEvent(t, c, domain.EventAck)
	assert.Equal(t, true, ackEvent["ok"])
	assert.True(t, f.hub.InRoom(c.ID, convID))
	assert.Equal(t, userID, c.Session.UserID())
}

func TestIdentifyAssociatesUser(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	c := f.newClient("a")
	first := uuid.New().String()
	second := uuid.New().String()

	f.svc.HandleIdentify(ctx, c, &domain.IdentifyEvent{Type: domain.EventIdentify, UserID: first})
	assert.Equal(t, first, c.Session.UserID())

	// Last write wins.
	f.svc.HandleIdentify(ctx, c, &domain.IdentifyEvent{Type: domain.EventIdentify, UserID: second})
	assert.Equal(t, second, c.Session.UserID())
}

func TestSendMessageBroadcastsToRoom(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	u1 := uuid.New().String()
	u2 := uuid.New().String()
	conv, err := f.convRepo.Create(ctx, []string{u1, u2})
	require.NoError(t, err)

	a := f.newClient("a")
	b := f.newClient("b")
	outsider := f.newClient("c")
	f.hub.JoinRoom(a, conv.ID)
	f.hub.JoinRoom(b, conv.ID)

	f.svc.HandleSendMessage(ctx, a, &domain.SendMessageEvent{
		Type:           domain.EventSendMessage,
		AckID:          "send-1",
		ConversationID: conv.ID,
		Sender:         u1,
		Text:           "hello",
	})

	// Sender receives both the ack and its own broadcast.
	ackEvent := recvEvent(t, a, domain.EventAck)
	assert.Equal(t, true, ackEvent["ok"])

	gotA := recvEvent(t, a, domain.EventNewMessage)
	gotB := recvEvent(t, b, domain.EventNewMessage)
	assert.Equal(t, gotA["id"], gotB["id"])
	assert.Equal(t, u1, gotA["sender"])

	// The wire carries the ciphertext envelope, never the plaintext.
	cipher := gotA["text"].(string)
	assert.NotEqual(t, "hello", cipher)
	plain, err := f.codec.Decrypt(cipher)
	require.NoError(t, err)
	assert.Equal(t, "hello", plain)

	expectSilence(t, outsider)

	// Replay decrypts server-side.
	msgs, err := f.msgRepo.ListByConversation(ctx, conv.ID, 10, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestSendMessageTouchesConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	u1 := uuid.New().String()
	u2 := uuid.New().String()
	conv, err := f.convRepo.Create(ctx, []string{u1, u2})
	require.NoError(t, err)

	a := f.newClient("a")
	f.hub.JoinRoom(a, conv.ID)

	f.svc.HandleSendMessage(ctx, a, &domain.SendMessageEvent{
		Type:           domain.EventSendMessage,
		AckID:          "1",
		ConversationID: conv.ID,
		Sender:         u1,
		Text:           "bump",
	})
	ackEvent := recvEvent(t, a, domain.EventAck)
	require.Equal(t, true, ackEvent["ok"])

	got, err := f.convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.LastMessageID)
	assert.True(t, got.LastMessageAt.After(conv.CreatedAt) || got.LastMessageAt.Equal(conv.CreatedAt))
}

func TestSendMessageValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	a := f.newClient("a")

	f.svc.HandleSendMessage(ctx, a, &domain.SendMessageEvent{
		Type:           domain.EventSendMessage,
		AckID:          "1",
		ConversationID: "bogus",
		Sender:         uuid.New().String(),
		Text:           "hi",
	})
	ackEvent := recvEvent(t, a, domain.EventAck)
	assert.Equal(t, domain.ErrCodeInvalidConversationID, ackEvent["error"])

	f.svc.HandleSendMessage(ctx, a, &domain.SendMessageEvent{
		Type:           domain.EventSendMessage,
		AckID:          "2",
		ConversationID: uuid.New().String(),
		Sender:         "bogus",
		Text:           "hi",
	})
	ackEvent = recvEvent(t, a, domain.EventAck)
	assert.Equal(t, domain.ErrCodeInvalidSender, ackEvent["error"])
}

func TestTypingExcludesOriginator(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	convID := uuid.New().String()
	userID := uuid.New().String()

	a := f.newClient("a")
	b := f.newClient("b")
	f.hub.JoinRoom(a, convID)
	f.hub.JoinRoom(b, convID)

	f.svc.HandleTyping(ctx, a, &domain.TypingEvent{
		Type:           domain.EventTyping,
		ConversationID: convID,
		UserID:         userID,
	})

	got := recvEvent(t, b, domain.EventUserTyping)
	assert.Equal(t, convID, got["conversationId"])
	assert.Equal(t, userID, got["userId"])
	expectSilence(t, a)
}

func TestMessageReadMarksAndBroadcasts(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	u1 := uuid.New().String()
	u2 := uuid.New().String()
	conv, err := f.convRepo.Create(ctx, []string{u1, u2})
	require.NoError(t, err)

	msg, err := f.msgRepo.Append(ctx, conv.ID, u1, "hello", nil, "")
	require.NoError(t, err)

	a := f.newClient("a")
	b := f.newClient("b")
	f.hub.JoinRoom(a, conv.ID)
	f.hub.JoinRoom(b, conv.ID)

	f.svc.HandleMessageRead(ctx, b, &domain.MessageReadEvent{
		Type:           domain.EventMessageRead,
		AckID:          "r1",
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		UserID:         u2,
	})

	ackEvent := recvEvent(t, b, domain.EventAck)
	require.Equal(t, true, ackEvent["ok"])
	data := ackEvent["data"].(map[string]interface{})
	assert.Equal(t, msg.ID, data["messageId"])
	assert.Equal(t, []interface{}{u2}, data["readBy"])

	status := recvEvent(t, a, domain.EventUpdateReadStatus)
	assert.Equal(t, msg.ID, status["messageId"])
	assert.Equal(t, []interface{}{u2}, status["readBy"])

	// Repeating the read leaves the reader set unchanged.
	f.svc.HandleMessageRead(ctx, b, &domain.MessageReadEvent{
		Type:           domain.EventMessageRead,
		AckID:          "r2",
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		UserID:         u2,
	})
	ackEvent = recvEvent(t, b, domain.EventAck)
	require.Equal(t, true, ackEvent["ok"])
	data = ackEvent["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{u2}, data["readBy"])
}

func TestMessageReadFallsBackToSessionIdentity(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	u1 := uuid.New().String()
	u2 := uuid.New().String()
	conv, err := f.convRepo.Create(ctx, []string{u1, u2})
	require.NoError(t, err)

	msg, err := f.msgRepo.Append(ctx, conv.ID, u1, "hello", nil, "")
	require.NoError(t, err)

	b := f.newClient("b")
	b.Session.SetUserID(u2)
	f.hub.JoinRoom(b, conv.ID)

	f.svc.HandleMessageRead(ctx, b, &domain.MessageReadEvent{
		Type:           domain.EventMessageRead,
		AckID:          "1",
		ConversationID: conv.ID,
		MessageID:      msg.ID,
	})

	ackEvent := recvEvent(t, b, domain.EventAck)
	require.Equal(t, true, ackEvent["ok"])
	data := ackEvent["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{u2}, data["readBy"])
}

func TestMessageReadRequiresSomeIdentity(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	b := f.newClient("b")

	f.svc.HandleMessageRead(ctx, b, &domain.MessageReadEvent{
		Type:      domain.EventMessageRead,
		AckID:     "1",
		MessageID: uuid.New().String(),
	})

	ackEvent := recvEvent(t, b, domain.EventAck)
	assert.Equal(t, false, ackEvent["ok"])
	assert.Equal(t, domain.ErrCodeMissingUser, ackEvent["error"])
}

func TestMessageReadUnknownMessage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	b := f.newClient("b")
	b.Session.SetUserID(uuid.New().String())

	f.svc.HandleMessageRead(ctx, b, &domain.MessageReadEvent{
		Type:           domain.EventMessageRead,
		AckID:          "1",
		ConversationID: uuid.New().String(),
		MessageID:      uuid.New().String(),
	})

	ackEvent := recvEvent(t, b, domain.EventAck)
	assert.Equal(t, false, ackEvent["ok"])
	assert.Equal(t, domain.ErrCodeMessageNotFound, ackEvent["error"])
}

func TestMessageReadInvalidID(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	b := f.newClient("b")

	f.svc.HandleMessageRead(ctx, b, &domain.MessageReadEvent{
		Type:      domain.EventMessageRead,
		AckID:     "1",
		MessageID: "bogus",
	})

	ackEvent := recvEvent(t, b, domain.EventAck)
	assert.Equal(t, domain.ErrCodeInvalidMessageID, ackEvent["error"])
}
