package store

import (
	"context"

	"gorm.io/gorm"
)

// ============================================================================
// Generic GORM Helpers
// ============================================================================
//
// These helpers operate on the raw *gorm.DB and handle context propagation,
// not-found conversion and the common list options.

// bulkChunkSize bounds the number of ids bound into a single IN clause.
// SQLite limits statements to 32766 parameters.
const bulkChunkSize = 500

// getByField retrieves a single record of type T by matching field=value.
//
// Example:
//
//	admin, err := getByField[models.Admin](db, ctx, "username", "root", models.ErrAdminNotFound)
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error, preloads ...string) (*T, error) {
	var result T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// listWhere retrieves records of type T ordered by id, applying opts.
// Returns an empty slice (not nil) on success with no records.
func listWhere[T any](db *gorm.DB, ctx context.Context, opts ListOptions, scopes ...func(*gorm.DB) *gorm.DB) ([]*T, error) {
	results := make([]*T, 0)
	q := db.WithContext(ctx).Scopes(scopes...)
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// deleteByField deletes records of type T matching field=value.
// Returns notFoundErr if no rows were affected.
func deleteByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) error {
	var zero T
	result := db.WithContext(ctx).Where(field+" = ?", value).Delete(&zero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}

// updateByIDs applies fields to every T whose id is in ids, in chunks, inside
// one transaction.
func updateByIDs[T any, ID int64 | uint](db *gorm.DB, ctx context.Context, ids []ID, fields map[string]any) (int64, error) {
	if len(ids) == 0 || len(fields) == 0 {
		return 0, nil
	}

	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var zero T
		for start := 0; start < len(ids); start += bulkChunkSize {
			end := min(start+bulkChunkSize, len(ids))
			res := tx.Model(&zero).Where("id IN ?", ids[start:end]).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			affected += res.RowsAffected
		}
		return nil
	})
	return affected, err
}
