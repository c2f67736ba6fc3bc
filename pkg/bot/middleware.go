package bot

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/models"
)

type contextKey int

const (
	chatTypeKey contextKey = iota
	isAdminKey
	userKey
)

// ChatTypeFromContext returns the chat type stored by ChatType.
func ChatTypeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(chatTypeKey).(string)
	return v
}

// IsAdminFromContext reports the flag stored by IsAdmin.
func IsAdminFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(isAdminKey).(bool)
	return v
}

// UserFromContext returns the user stored by TrackUsers, or nil.
func UserFromContext(ctx context.Context) *models.User {
	v, _ := ctx.Value(userKey).(*models.User)
	return v
}

// ChatType stores the message's chat type in the context.
func ChatType() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *Message) error {
			return next(context.WithValue(ctx, chatTypeKey, msg.Chat.Type), msg)
		}
	}
}

// OnlyChatTypes drops messages from chats of other types.
func OnlyChatTypes(types ...string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *Message) error {
			if !slices.Contains(types, msg.Chat.Type) {
				logger.DebugCtx(ctx, "Ignoring message from unsupported chat type",
					"chat_type", msg.Chat.Type, logger.KeyChatID, msg.Chat.ID)
				return nil
			}
			return next(ctx, msg)
		}
	}
}

// AdminLookup resolves whether a username belongs to an admin.
type AdminLookup interface {
	IsAdminUsername(ctx context.Context, username string) (bool, error)
}

// IsAdmin stores whether the sender is a registered admin. Lookup failures
// are logged and treated as "not an admin".
func IsAdmin(lookup AdminLookup) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *Message) error {
			admin := false
			if msg.From != nil && msg.From.Username != "" {
				ok, err := lookup.IsAdminUsername(ctx, msg.From.Username)
				if err != nil {
					logger.WarnCtx(ctx, "Admin lookup failed", logger.KeyUsername, msg.From.Username, logger.Err(err))
				}
				admin = ok
			}
			return next(context.WithValue(ctx, isAdminKey, admin), msg)
		}
	}
}

// UserTracker records bot users and their activity.
type UserTracker interface {
	UpsertUser(ctx context.Context, user *models.User) error
}

// TrackUsers upserts the sender on every message so activity timestamps stay
// fresh for the reminder job. The stored user is available through
// UserFromContext.
func TrackUsers(tracker UserTracker) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *Message) error {
			if msg.From == nil || msg.From.IsBot {
				return next(ctx, msg)
			}
			u := &models.User{
				ID:         msg.From.ID,
				FirstName:  msg.From.FirstName,
				LastName:   msg.From.LastName,
				Username:   msg.From.Username,
				LastActive: time.Now().UTC(),
			}
			if err := tracker.UpsertUser(ctx, u); err != nil {
				return fmt.Errorf("track user %d: %w", u.ID, err)
			}
			return next(context.WithValue(ctx, userKey, u), msg)
		}
	}
}

// Recover turns handler panics into errors.
func Recover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in bot handler: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// Logging logs every handled message at debug level.
func Logging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *Message) error {
			start := time.Now()
			err := next(ctx, msg)
			name, _ := msg.Command()
			logger.DebugCtx(ctx, "Message handled",
				logger.KeyChatID, msg.Chat.ID,
				logger.KeyCommand, name,
				logger.DurationMs(time.Since(start)))
			return err
		}
	}
}

// AdminOnly is a route filter accepting admins only. Requires IsAdmin.
func AdminOnly() Filter {
	return func(ctx context.Context, _ *Message) bool {
		return IsAdminFromContext(ctx)
	}
}

// InChatType is a route filter matching a single chat type. Requires ChatType.
func InChatType(chatType string) Filter {
	return func(ctx context.Context, _ *Message) bool {
		return ChatTypeFromContext(ctx) == chatType
	}
}
