package bot

import (
	"context"
	"errors"
	"sort"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
)

// HandlerFunc handles a message.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Middleware wraps a HandlerFunc. Middlewares registered first run first.
type Middleware func(next HandlerFunc) HandlerFunc

// Filter decides whether a route applies to a message.
type Filter func(ctx context.Context, msg *Message) bool

type route struct {
	handler HandlerFunc
	filters []Filter
}

func (r route) matches(ctx context.Context, msg *Message) bool {
	for _, f := range r.filters {
		if !f(ctx, msg) {
			return false
		}
	}
	return true
}

// Router dispatches message updates to command handlers. Routes and
// middlewares must be registered before polling starts.
type Router struct {
	middlewares []Middleware
	commands    map[string]route
	fallback    *route
	metrics     Metrics
}

// NewRouter creates an empty router. m may be nil.
func NewRouter(m Metrics) *Router {
	return &Router{
		commands: make(map[string]route),
		metrics:  m,
	}
}

// Use appends middlewares to the chain.
func (r *Router) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// Command routes /name to h when every filter accepts the message.
func (r *Router) Command(name string, h HandlerFunc, filters ...Filter) {
	r.commands[name] = route{handler: h, filters: filters}
}

// Fallback handles messages no command matched.
func (r *Router) Fallback(h HandlerFunc, filters ...Filter) {
	r.fallback = &route{handler: h, filters: filters}
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleUpdate implements UpdateHandler. Handler errors go through
// HandleError and are not returned.
func (r *Router) HandleUpdate(ctx context.Context, u *Update) error {
	if u == nil || u.Message == nil {
		return nil
	}
	msg := u.Message

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanBotUpdate)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.ChatID(msg.Chat.ID))

	kind := "message"
	if msg.IsCommand() {
		kind = "command"
	}
	if r.metrics != nil {
		r.metrics.RecordUpdate(kind)
	}

	h := r.dispatch
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	if err := h(ctx, msg); err != nil {
		telemetry.RecordError(ctx, err)
		return r.HandleError(ctx, err)
	}
	return nil
}

// dispatch is the innermost handler: it picks the route after middlewares
// have populated the context.
func (r *Router) dispatch(ctx context.Context, msg *Message) error {
	if name, _ := msg.Command(); name != "" {
		if rt, ok := r.commands[name]; ok && rt.matches(ctx, msg) {
			return rt.handler(ctx, msg)
		}
	}
	if r.fallback != nil && r.fallback.matches(ctx, msg) {
		return r.fallback.handler(ctx, msg)
	}
	return nil
}

// HandleError is the last resort for handler failures. Flood control
// waits for the advised delay; everything else is logged.
func (r *Router) HandleError(ctx context.Context, err error) error {
	var (
		retry  *RetryAfterError
		netErr *NetworkError
		apiErr *APIError
	)
	switch {
	case errors.As(err, &retry):
		logger.WarnCtx(ctx, "Flood control exceeded, waiting", "retry_after", retry.RetryAfter)
		if !sleep(ctx, retry.RetryAfter) {
			return ctx.Err()
		}
	case errors.As(err, &netErr):
		logger.WarnCtx(ctx, "Bot network error", logger.Err(err))
	case errors.As(err, &apiErr):
		logger.ErrorCtx(ctx, "Bot API error", "code", apiErr.Code, logger.Err(err))
	default:
		logger.ErrorCtx(ctx, "Unhandled error in bot handler", logger.Err(err))
	}
	return nil
}
