package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

// GormUserRepository is a read-only view over the users table. User records
// are owned by the account service; this core only resolves display names.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetUsernames maps user ids to usernames. Unknown ids are simply absent
// from the result; callers fall back to the raw id.
func (r *GormUserRepository) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve usernames")
		return nil, err
	}

	names := make(map[string]string, len(models))
	for _, m := range models {
		names[m.ID] = m.Username
	}
	return names, nil
}
