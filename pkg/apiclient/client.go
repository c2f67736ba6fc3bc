// Package apiclient is the REST client for the external items/users API.
//
// One Client owns one *http.Client; every resource shares it. Only the owner
// of the Client may call Close.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Config configures the external API client.
type Config struct {
	// BaseURL of the external API. Empty disables the client.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`

	// Token is sent as a Bearer token when set.
	Token string `mapstructure:"token" yaml:"token"`

	// Timeout bounds a single request. Default: 30s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxIdleConns bounds the pooled connections. Default: 10
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
}

// Client is the external API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a new API client with a dedicated connection pool.
func New(cfg Config) *Client {
	cfg.ApplyDefaults()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConns

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		token: cfg.Token,
	}
}

// WithToken returns a new client with the given token, sharing the
// connection pool.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		token:      token,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Items is the /items resource.
func (c *Client) Items() *Resource[Item] {
	return &Resource[Item]{client: c, endpoint: "/items"}
}

// Users is the /users resource.
func (c *Client) Users() *Resource[UserData] {
	return &Resource[UserData]{client: c, endpoint: "/users"}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// do performs an HTTP request and decodes the response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, telemetry.SpanAPIRequest,
		attribute.String("http.method", method), attribute.String("http.route", path))
	defer func() { telemetry.Finish(span, err) }()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ErrorCtx(ctx, "External API request failed", "url", target, logger.Err(err))
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			logger.WarnCtx(ctx, "Resource not found", "url", target)
		case resp.StatusCode == http.StatusForbidden:
			logger.WarnCtx(ctx, "Access forbidden to resource", "url", target)
		default:
			logger.ErrorCtx(ctx, "External API error", "url", target, "status", resp.StatusCode, logger.Err(apiErr))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
