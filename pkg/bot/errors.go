package bot

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrForbidden is returned when the bot was blocked by the user or kicked
	// from the chat.
	ErrForbidden = errors.New("bot: forbidden")

	// ErrChatNotFound is returned when the destination chat or user no longer exists.
	ErrChatNotFound = errors.New("bot: chat not found")

	// ErrBadRequest covers every other 400 response.
	ErrBadRequest = errors.New("bot: bad request")

	// ErrUnauthorized means the token was rejected. Polling stops on it.
	ErrUnauthorized = errors.New("bot: unauthorized")

	// ErrConflict means another getUpdates consumer or a webhook is active.
	ErrConflict = errors.New("bot: conflict")

	// ErrServer is returned for 5xx responses.
	ErrServer = errors.New("bot: server error")

	// ErrInvalidToken is returned by New when no token is configured.
	ErrInvalidToken = errors.New("bot: token is required")
)

// APIError is an unsuccessful Bot API response. It unwraps to one of the
// package sentinels so callers can use errors.Is.
type APIError struct {
	Method      string
	Code        int
	Description string

	kind error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bot: %s failed: %d %s", e.Method, e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// RetryAfterError is returned on flood control (HTTP 429).
type RetryAfterError struct {
	Method     string
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("bot: %s rate limited, retry after %s", e.Method, e.RetryAfter)
}

// NetworkError wraps a transport failure: the request never produced a
// decodable Bot API response.
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("bot: %s: network error: %v", e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewAPIError maps a failed Bot API response to the error taxonomy: a
// *RetryAfterError for 429, an *APIError unwrapping to a sentinel otherwise.
func NewAPIError(method string, code int, description string, retryAfter int) error {
	if code == http.StatusTooManyRequests {
		return &RetryAfterError{Method: method, RetryAfter: time.Duration(retryAfter) * time.Second}
	}

	e := &APIError{Method: method, Code: code, Description: description}
	lower := strings.ToLower(description)
	switch {
	case code == http.StatusForbidden:
		e.kind = ErrForbidden
	case code == http.StatusBadRequest && (strings.Contains(lower, "chat not found") || strings.Contains(lower, "user not found")):
		e.kind = ErrChatNotFound
	case code == http.StatusBadRequest:
		e.kind = ErrBadRequest
	case code == http.StatusUnauthorized, code == http.StatusNotFound:
		// the Bot API answers 404 for a malformed token
		e.kind = ErrUnauthorized
	case code == http.StatusConflict:
		e.kind = ErrConflict
	case code >= 500:
		e.kind = ErrServer
	}
	return e
}

// IsPermanent reports whether err means the recipient can never be reached.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrChatNotFound)
}
