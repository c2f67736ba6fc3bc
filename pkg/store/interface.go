// Package store provides the botkit persistence layer.
//
// Two backends are supported through GORM:
//   - SQLite (single-node, default), schema managed by AutoMigrate
//   - PostgreSQL, schema versioned with golang-migrate
package store

import (
	"context"
	"time"

	"github.com/marmos91/botkit/pkg/models"
)

// ListOptions narrows list queries.
type ListOptions struct {
	ActiveOnly bool
	Limit      int // 0 means no limit
	Offset     int
}

// UserStore manages bot users.
type UserStore interface {
	// GetUser returns a user by Telegram id.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id int64) (*models.User, error)

	ListUsers(ctx context.Context, opts ListOptions) ([]*models.User, error)

	CountUsers(ctx context.Context) (int64, error)

	// UpsertUser creates the user or refreshes its profile fields. An
	// existing user becomes active again and loses its reminded flag.
	UpsertUser(ctx context.Context, user *models.User) error

	// TouchUser records activity at the given time and clears the reminded flag.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	TouchUser(ctx context.Context, id int64, at time.Time) error

	// SetUserActive toggles the soft-delete flag.
	SetUserActive(ctx context.Context, id int64, active bool) error

	// ListUsersForReminder returns active users that were not reminded yet and
	// whose last activity is older than inactiveSince.
	ListUsersForReminder(ctx context.Context, inactiveSince time.Time) ([]*models.User, error)

	// BulkUpdateUsers applies fields to every user in ids and returns the number
	// of rows changed.
	BulkUpdateUsers(ctx context.Context, ids []int64, fields map[string]any) (int64, error)

	MarkReminded(ctx context.Context, ids []int64) (int64, error)
	MarkInactive(ctx context.Context, ids []int64) (int64, error)
}

// ItemStore manages items.
type ItemStore interface {
	ListItems(ctx context.Context, opts ListOptions) ([]*models.Item, error)
	ListItemsByUser(ctx context.Context, userID int64) ([]*models.Item, error)

	// GetItem returns models.ErrItemNotFound if the item doesn't exist.
	GetItem(ctx context.Context, id uint) (*models.Item, error)

	// CreateItem validates and stores the item; its owner must exist.
	CreateItem(ctx context.Context, item *models.Item) error

	DeleteItem(ctx context.Context, id uint) error
}

// AdminStore manages admin panel accounts.
type AdminStore interface {
	// GetAdmin returns an admin by username.
	// Returns models.ErrAdminNotFound if the admin doesn't exist.
	GetAdmin(ctx context.Context, username string) (*models.Admin, error)

	ListAdmins(ctx context.Context) ([]*models.Admin, error)

	// CreateAdmin returns models.ErrDuplicateAdmin if the username is taken.
	CreateAdmin(ctx context.Context, admin *models.Admin) error

	DeleteAdmin(ctx context.Context, username string) error

	// IsAdminUsername reports whether username belongs to an active admin.
	IsAdminUsername(ctx context.Context, username string) (bool, error)
}

// Store is the data-access capability shared by the bot, API, admin panel and
// scheduler. It deliberately has no Close: only the database module that
// created the store may close it.
//
// Implementations must be safe for concurrent use.
type Store interface {
	UserStore
	ItemStore
	AdminStore

	// Healthcheck verifies the database connection is alive.
	Healthcheck(ctx context.Context) error
}
