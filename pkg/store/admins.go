package store

import (
	"context"
	"errors"

	"github.com/marmos91/botkit/pkg/models"
)

// ============================================
// ADMIN OPERATIONS
// ============================================

func (s *GORMStore) GetAdmin(ctx context.Context, username string) (*models.Admin, error) {
	return getByField[models.Admin](s.db, ctx, "username", username, models.ErrAdminNotFound)
}

func (s *GORMStore) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	return listWhere[models.Admin](s.db, ctx, ListOptions{})
}

func (s *GORMStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateAdmin
		}
		return err
	}
	return nil
}

func (s *GORMStore) DeleteAdmin(ctx context.Context, username string) error {
	return deleteByField[models.Admin](s.db, ctx, "username", username, models.ErrAdminNotFound)
}

func (s *GORMStore) IsAdminUsername(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	admin, err := s.GetAdmin(ctx, username)
	if errors.Is(err, models.ErrAdminNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return admin.IsActive, nil
}
