package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Trungnc273/ebay-be/internal/crypto"
	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/pkg/database"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

const maxPageSize = 200

// GormMessageRepository implements MessageRepository using GORM. Text is
// encrypted through the codec on the way in and decrypted on the way out.
type GormMessageRepository struct {
	db    *gorm.DB
	codec *crypto.Codec
}

// NewGormMessageRepository creates a GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB, codec *crypto.Codec) *GormMessageRepository {
	return &GormMessageRepository{db: db, codec: codec}
}

// Append encrypts and persists a new message.
func (r *GormMessageRepository) Append(ctx context.Context, conversationID, senderID, text string, attachments domain.AttachmentList, productRef string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	if uuid.Validate(conversationID) != nil || uuid.Validate(senderID) != nil {
		return nil, ErrInvalidID
	}

	stored := text
	if enc, err := r.codec.Encrypt(text); err != nil {
		// Encryption failure is recoverable: store raw text rather than
		// dropping the message.
		l.Warn().Err(err).Msg("encrypt failed, storing raw text")
	} else {
		stored = enc
	}

	if attachments == nil {
		attachments = domain.AttachmentList{}
	}
	normalized := make(domain.AttachmentList, len(attachments))
	for i, a := range attachments {
		normalized[i] = domain.Attachment{URL: a.URL, Kind: domain.NormalizeAttachmentKind(a.Kind)}
	}

	model := &domain.MessageModel{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           stored,
		Attachments:    normalized,
		ReadBy:         database.StringArray{},
		CreatedAt:      time.Now().UTC(),
	}
	if productRef != "" && uuid.Validate(productRef) == nil {
		model.ProductRef = &productRef
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to create message in db")
		return nil, err
	}

	l.Debug().
		Str(log.FieldMessageID, model.ID).
		Str(log.FieldConversationID, conversationID).
		Msg("message created in db")
	return model.ToDomain(), nil
}

// ListByConversation returns decrypted messages, newest first.
func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int, before *time.Time) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	if limit < 1 {
		limit = 50
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var models []domain.MessageModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to list messages from db")
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		msg := model.ToDomain()
		plain, err := r.codec.Decrypt(msg.Text)
		if err != nil {
			// Keep the raw stored value rather than failing the page.
			l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("decrypt failed, returning stored text")
		} else {
			msg.Text = plain
		}
		messages[i] = *msg
	}
	return messages, nil
}

// MarkRead idempotently adds readerID to the message's reader set.
func (r *GormMessageRepository) MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	var model domain.MessageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock so concurrent readers union instead of overwriting each
		// other's reader set.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}

		if slices.Contains(model.ReadBy, readerID) {
			return nil
		}

		model.ReadBy = append(model.ReadBy, readerID)
		return tx.Model(&domain.MessageModel{}).
			Where("id = ?", messageID).
			Update("read_by", model.ReadBy).Error
	})
	if err != nil {
		if !errors.Is(err, ErrMessageNotFound) {
			l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to mark message read")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// MarkAllReadInConversation adds readerID to every message's reader set in
// one conversation. Used by the bulk "mark conversation read" action.
func (r *GormMessageRepository) MarkAllReadInConversation(ctx context.Context, conversationID, readerID string) error {
	l := log.Ctx(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []domain.MessageModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ?", conversationID).
			Find(&models).Error; err != nil {
			l.Error().Err(err).Str(log.FieldConversationID, conversationID).Msg("failed to load messages for bulk read")
			return err
		}

		for i := range models {
			if slices.Contains(models[i].ReadBy, readerID) {
				continue
			}
			models[i].ReadBy = append(models[i].ReadBy, readerID)
			if err := tx.Model(&domain.MessageModel{}).
				Where("id = ?", models[i].ID).
				Update("read_by", models[i].ReadBy).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
