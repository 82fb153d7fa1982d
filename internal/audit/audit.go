package audit

import (
	"context"

	"github.com/Trungnc273/ebay-be/pkg/log"
)

// Audit actions for the messaging core.
const (
	ActionIdentify    = "chat.identify"
	ActionJoinRoom    = "chat.join_room"
	ActionSendMessage = "chat.send_message"
	ActionMessageRead = "chat.message_read"
	ActionMarkAllRead = "chat.mark_all_read"
	ActionCreateConv  = "chat.create_conversation"
	ActionDisconnect  = "chat.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}
