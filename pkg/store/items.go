package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marmos91/botkit/pkg/models"
)

// ============================================
// ITEM OPERATIONS
// ============================================

func (s *GORMStore) ListItems(ctx context.Context, opts ListOptions) ([]*models.Item, error) {
	return listWhere[models.Item](s.db, ctx, opts)
}

func (s *GORMStore) ListItemsByUser(ctx context.Context, userID int64) ([]*models.Item, error) {
	return listWhere[models.Item](s.db, ctx, ListOptions{}, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
}

func (s *GORMStore) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	return getByField[models.Item](s.db, ctx, "id", id, models.ErrItemNotFound)
}

func (s *GORMStore) CreateItem(ctx context.Context, item *models.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&models.User{}).Where("id = ?", item.UserID).Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return fmt.Errorf("item owner %d: %w", item.UserID, models.ErrUserNotFound)
		}
		return tx.Create(item).Error
	})
}

func (s *GORMStore) DeleteItem(ctx context.Context, id uint) error {
	return deleteByField[models.Item](s.db, ctx, "id", id, models.ErrItemNotFound)
}
