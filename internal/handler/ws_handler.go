package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Trungnc273/ebay-be/internal/config"
	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/internal/hub"
	"github.com/Trungnc273/ebay-be/internal/service"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades connections and dispatches socket events to the chat
// service.
type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleEvent)

		l := log.L().With().Str(log.FieldClientID, client.ID).Logger()
		h.service.HandleDisconnect(log.WithLogger(context.Background(), l), client)
	}()
}

// handleEvent is the handler boundary: whatever goes wrong inside an event
// handler is converted to an ack failure plus an error event, never a dead
// connection.
func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInternalError, "invalid event format"))
		return
	}

	l := log.L().With().Str(log.FieldClientID, client.ID).Logger()
	ctx := log.WithLogger(context.Background(), l)

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Str("event", base.Type).Msg("event handler panicked")
			if base.AckID != "" {
				client.SendEvent(domain.NewAckError(base.AckID, domain.ErrCodeInternalError))
			}
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInternalError, "event handler failed"))
		}
	}()

	switch base.Type {
	case domain.EventIdentify:
		var event domain.IdentifyEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInternalError, "invalid identify event"))
			return
		}
		h.service.HandleIdentify(ctx, client, &event)

	case domain.EventJoinRoom:
		var event domain.JoinRoomEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewAckError(base.AckID, domain.ErrCodeInvalidConversationID))
			return
		}
		h.service.HandleJoinRoom(ctx, client, &event)

	case domain.EventSendMessage:
		var event domain.SendMessageEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewAckError(base.AckID, domain.ErrCodeSendMessageFailed))
			return
		}
		h.service.HandleSendMessage(ctx, client, &event)

	case domain.EventTyping:
		var event domain.TypingEvent
		if err := json.Unmarshal(message, &event); err != nil {
			return
		}
		h.service.HandleTyping(ctx, client, &event)

	case domain.EventMessageRead:
		var event domain.MessageReadEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewAckError(base.AckID, domain.ErrCodeInvalidMessageID))
			return
		}
		h.service.HandleMessageRead(ctx, client, &event)

	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInternalError, "unknown event type"))
	}
}
