package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/marmos91/botkit/pkg/models"
)

// ============================================
// USER OPERATIONS
// ============================================

func (s *GORMStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "id", id, models.ErrUserNotFound)
}

func (s *GORMStore) ListUsers(ctx context.Context, opts ListOptions) ([]*models.User, error) {
	return listWhere[models.User](s.db, ctx, opts)
}

func (s *GORMStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GORMStore) UpsertUser(ctx context.Context, user *models.User) error {
	if user.LastActive.IsZero() {
		user.LastActive = time.Now()
	}
	user.LastActive = user.LastActive.UTC()
	user.IsActive = true
	user.IsReminded = false

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "username",
			"is_active", "is_reminded", "last_active", "updated_at",
		}),
	}).Create(user).Error
}

func (s *GORMStore) TouchUser(ctx context.Context, id int64, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_active": at.UTC(),
			"is_reminded": false,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *GORMStore) SetUserActive(ctx context.Context, id int64, active bool) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *GORMStore) ListUsersForReminder(ctx context.Context, inactiveSince time.Time) ([]*models.User, error) {
	users := make([]*models.User, 0)
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND is_reminded = ? AND last_active < ?", true, false, inactiveSince.UTC()).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GORMStore) BulkUpdateUsers(ctx context.Context, ids []int64, fields map[string]any) (int64, error) {
	return updateByIDs[models.User](s.db, ctx, ids, fields)
}

func (s *GORMStore) MarkReminded(ctx context.Context, ids []int64) (int64, error) {
	return s.BulkUpdateUsers(ctx, ids, map[string]any{"is_reminded": true})
}

func (s *GORMStore) MarkInactive(ctx context.Context, ids []int64) (int64, error) {
	return s.BulkUpdateUsers(ctx, ids, map[string]any{"is_active": false})
}
