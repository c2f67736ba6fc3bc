package bot

import (
	"context"
	"errors"
	"html"
	"strings"
)

const preOverhead = len("<pre></pre>")

// Alerter forwards log alerts to maintainer chats. It implements
// logger.Alerter.
type Alerter struct {
	client      *Client
	maintainers []int64
}

// NewAlerter creates an alerter sending to every maintainer chat id.
func NewAlerter(client *Client, maintainers []int64) *Alerter {
	return &Alerter{client: client, maintainers: maintainers}
}

// Alert sends text to every maintainer. Every chat is attempted; the
// failures are joined.
func (a *Alerter) Alert(ctx context.Context, text string) error {
	body := "<pre>" + escapeTruncated(text, MaxMessageLength-preOverhead) + "</pre>"

	var errs []error
	for _, id := range a.maintainers {
		_, err := a.client.SendMessage(ctx, SendMessageParams{ChatID: id, Text: body, ParseMode: "HTML"})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// escapeTruncated HTML-escapes s and keeps at most limit runes without
// splitting an entity.
func escapeTruncated(s string, limit int) string {
	escaped := []rune(html.EscapeString(s))
	if len(escaped) <= limit {
		return string(escaped)
	}
	out := string(escaped[:limit])
	if amp := strings.LastIndexByte(out, '&'); amp > strings.LastIndexByte(out, ';') {
		out = out[:amp]
	}
	return out
}
