package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// MaxMessageLength is the longest text sendMessage accepts.
const MaxMessageLength = 4096

// Config configures the Bot API client.
type Config struct {
	// Token is the bot token issued by @BotFather.
	Token string `mapstructure:"token" yaml:"token"`

	// APIURL overrides the Bot API endpoint (local Bot API server, tests).
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	// RequestTimeout bounds a single non-polling request.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// PollTimeout is the long-polling timeout passed to getUpdates.
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`

	// ParseMode is applied to every outgoing message (HTML, MarkdownV2, or empty).
	ParseMode string `mapstructure:"parse_mode" yaml:"parse_mode" validate:"omitempty,oneof=HTML MarkdownV2 Markdown"`

	// ChatTypes restricts which chats the router answers. Empty means private only.
	ChatTypes []string `mapstructure:"chat_types" yaml:"chat_types" validate:"dive,oneof=private group supergroup channel"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = 30 * time.Second
	}
	if c.ParseMode == "" {
		c.ParseMode = "HTML"
	}
	if len(c.ChatTypes) == 0 {
		c.ChatTypes = []string{ChatPrivate}
	}
}

// Sender is the capability handed to modules that only need to send
// messages. It deliberately exposes no way to close the client.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Metrics records Bot API activity. A nil Metrics disables collection.
type Metrics interface {
	ObserveCall(method string, duration time.Duration, err error)
	RecordUpdate(kind string)
}

// Client talks to the Bot API over HTTPS.
type Client struct {
	config     Config
	httpClient *http.Client
	metrics    Metrics
	baseURL    string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout must be zero or larger
// than the poll timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics enables metrics collection.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Bot API client. No request is made.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if cfg.Token == "" {
		return nil, ErrInvalidToken
	}

	c := &Client{
		config: cfg,
		// per-request deadlines come from the context
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.APIURL, "/") + "/bot" + cfg.Token + "/",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// call invokes a Bot API method with a JSON body and decodes the result.
func (c *Client) call(ctx context.Context, method string, params, result any, timeout time.Duration) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, telemetry.SpanBotCall, telemetry.BotMethod(method))
	start := time.Now()
	defer func() {
		telemetry.Finish(span, err)
		if c.metrics != nil {
			c.metrics.ObserveCall(method, time.Since(start), err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("bot: failed to marshal %s params: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, body)
	if err != nil {
		return fmt.Errorf("bot: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// a cancelled caller is not a network failure
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &NetworkError{Method: method, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		if resp.StatusCode >= 500 {
			return NewAPIError(method, resp.StatusCode, resp.Status, 0)
		}
		return &NetworkError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}

	if !r.OK {
		code := r.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		retryAfter := 0
		if r.Parameters != nil {
			retryAfter = r.Parameters.RetryAfter
		}
		return NewAPIError(method, code, r.Description, retryAfter)
	}

	if result != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, result); err != nil {
			return fmt.Errorf("bot: failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own user. Used to verify the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me, c.config.RequestTimeout); err != nil {
		return nil, err
	}
	return &me, nil
}

// SendMessageParams are the sendMessage arguments botkit uses.
type SendMessageParams struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendMessage sends a text message. Text longer than MaxMessageLength is
// rejected by the API with ErrBadRequest.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	if params.ParseMode == "" {
		params.ParseMode = c.config.ParseMode
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg, c.config.RequestTimeout); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Send implements Sender.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	_, err := c.SendMessage(ctx, SendMessageParams{ChatID: chatID, Text: text})
	return err
}

type getUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// GetUpdates long-polls for updates with an id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit int) ([]Update, error) {
	params := getUpdatesParams{
		Offset:         offset,
		Limit:          limit,
		Timeout:        int(c.config.PollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}
	var updates []Update
	// leave room for the server to answer after the poll timeout
	if err := c.call(ctx, "getUpdates", params, &updates, c.config.PollTimeout+c.config.RequestTimeout); err != nil {
		return nil, err
	}
	return updates, nil
}

// SetMyCommands replaces the bot's command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	params := struct {
		Commands []BotCommand `json:"commands"`
	}{Commands: commands}
	return c.call(ctx, "setMyCommands", params, nil, c.config.RequestTimeout)
}

// DeleteWebhook removes a webhook so getUpdates can be used.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]bool{"drop_pending_updates": false}, nil, c.config.RequestTimeout)
}

// Close releases idle connections held by the transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	logger.Debug("Bot client closed")
}

var _ Sender = (*Client)(nil)
