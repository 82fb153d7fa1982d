package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/pkg/database"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// normalizeParticipants sorts and de-duplicates a participant list.
func normalizeParticipants(participants []string) []string {
	seen := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Create persists a new conversation for the normalized participant set.
func (r *GormConversationRepository) Create(ctx context.Context, participants []string) (*domain.Conversation, error) {
	l := log.Ctx(ctx)

	sorted := normalizeParticipants(participants)
	if len(sorted) < 2 {
		return nil, ErrInvalidParticipants
	}

	now := time.Now().UTC()
	model := &domain.ConversationModel{
		ID:              uuid.New().String(),
		Participants:    database.StringArray(sorted),
		ParticipantsKey: domain.ParticipantsKeyFor(sorted),
		LastMessageAt:   now,
		Meta:            database.JSONMap{},
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create conversation in db")
		return nil, err
	}

	l.Debug().Str(log.FieldConversationID, model.ID).Msg("conversation created in db")
	return model.ToDomain(), nil
}

// FindByParticipants matches the exact normalized participant set.
func (r *GormConversationRepository) FindByParticipants(ctx context.Context, participants []string) (*domain.Conversation, error) {
	sorted := normalizeParticipants(participants)
	if len(sorted) < 2 {
		return nil, ErrInvalidParticipants
	}

	var model domain.ConversationModel
	result := r.db.WithContext(ctx).
		Where("participants_key = ?", domain.ParticipantsKeyFor(sorted)).
		Order("created_at ASC").
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Msg("failed to find conversation by participants")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByID retrieves a conversation by id.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldConversationID, id).Msg("failed to get conversation by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Touch bumps the last-activity marker. Message delivery must not fail on
// this bookkeeping update, so errors are logged and dropped here.
func (r *GormConversationRepository) Touch(ctx context.Context, conversationID, lastMessageID string, at time.Time) {
	result := r.db.WithContext(ctx).Model(&domain.ConversationModel{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_id": lastMessageID,
			"last_message_at": at,
		})
	if result.Error != nil {
		log.Ctx(ctx).Warn().Err(result.Error).
			Str(log.FieldConversationID, conversationID).
			Msg("failed to touch conversation, continuing")
	}
}

// ListForParticipant returns the user's conversations, newest activity first.
func (r *GormConversationRepository) ListForParticipant(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// ParticipantsKey is the sorted id list joined with commas, so exact
	// membership reduces to four positional patterns.
	query := r.db.WithContext(ctx).Model(&domain.ConversationModel{}).
		Where(
			"participants_key = ? OR participants_key LIKE ? OR participants_key LIKE ? OR participants_key LIKE ?",
			userID, userID+",%", "%,"+userID, "%,"+userID+",%",
		)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count conversations")
		return nil, 0, err
	}

	var models []domain.ConversationModel
	if err := query.Order("last_message_at DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list conversations from db")
		return nil, 0, err
	}

	conversations := make([]domain.Conversation, len(models))
	for i, model := range models {
		conversations[i] = *model.ToDomain()
	}
	return conversations, int(total), nil
}
