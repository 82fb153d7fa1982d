package domain

// WebSocket event types from client.
const (
	EventIdentify    = "identify"
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventMessageRead = "message_read"
)

// WebSocket event types to client.
const (
	EventAck              = "ack"
	EventNewMessage       = "new_message"
	EventUserTyping       = "user_typing"
	EventUpdateReadStatus = "update_read_status"
	EventError            = "error"
)

// Wire error codes reported through acks and error events.
const (
	ErrCodeInvalidConversationID = "invalid_conversation_id"
	ErrCodeInvalidSender         = "invalid_sender"
	ErrCodeInvalidMessageID      = "invalid_message_id"
	ErrCodeMissingUser           = "missing_user"
	ErrCodeMessageNotFound       = "message_not_found"
	ErrCodeSendMessageFailed     = "send_message_failed"
	ErrCodeInternalError         = "internal_error"
)

// BaseEvent is the envelope shared by all inbound events. AckID, when set,
// requests an ack event carrying the same id.
type BaseEvent struct {
	Type  string `json:"type"`
	AckID string `json:"ack_id,omitempty"`
}

// Client -> Server events

type IdentifyEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type JoinRoomEvent struct {
	Type           string `json:"type"`
	AckID          string `json:"ack_id,omitempty"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
}

type SendMessageEvent struct {
	Type           string         `json:"type"`
	AckID          string         `json:"ack_id,omitempty"`
	ConversationID string         `json:"conversationId"`
	Sender         string         `json:"sender"`
	Text           string         `json:"text"`
	Attachments    AttachmentList `json:"attachments,omitempty"`
	ProductRef     string         `json:"productRef,omitempty"`
}

type TypingEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
}

type MessageReadEvent struct {
	Type           string `json:"type"`
	AckID          string `json:"ack_id,omitempty"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId,omitempty"`
}

// Server -> Client events

// AckEvent is the per-request acknowledgement, distinct from broadcasts.
type AckEvent struct {
	Type  string      `json:"type"`
	AckID string      `json:"ack_id,omitempty"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// NewMessagePayload is broadcast to a room on send_message. Text carries the
// ciphertext envelope exactly as stored; clients replaying history get the
// decrypted form from the HTTP surface instead.
type NewMessagePayload struct {
	Type           string         `json:"type"`
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	Sender         string         `json:"sender"`
	Text           string         `json:"text"`
	Attachments    AttachmentList `json:"attachments"`
	ProductRef     string         `json:"productRef,omitempty"`
	ReadBy         []string       `json:"readBy"`
	CreatedAt      string         `json:"createdAt"`
}

type UserTypingPayload struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
}

type ReadStatusPayload struct {
	Type      string   `json:"type"`
	MessageID string   `json:"messageId"`
	ReadBy    []string `json:"readBy"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// NewAck builds a success ack.
func NewAck(ackID string, data interface{}) *AckEvent {
	return &AckEvent{Type: EventAck, AckID: ackID, OK: true, Data: data}
}

// NewAckError builds a failure ack with a wire error code.
func NewAckError(ackID, code string) *AckEvent {
	return &AckEvent{Type: EventAck, AckID: ackID, OK: false, Error: code}
}

// NewErrorEvent builds a standalone error event.
func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{Type: EventError, Code: code, Message: message}
}
