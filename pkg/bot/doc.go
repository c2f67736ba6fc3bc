// Package bot is a small Telegram Bot API client.
//
// It covers what botkit needs: sending messages, long polling for updates,
// registering commands and routing commands to handlers through a middleware
// chain. Failures are reported with a typed taxonomy so callers can tell a
// recipient that blocked the bot (ErrForbidden, ErrChatNotFound) from a
// transient problem (*NetworkError, *RetryAfterError, ErrServer).
package bot
