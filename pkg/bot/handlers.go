package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/marmos91/botkit/pkg/models"
)

// DefaultCommands is the command menu registered at startup.
func DefaultCommands() []BotCommand {
	return []BotCommand{
		{Command: "start", Description: "Start working with the bot"},
		{Command: "help", Description: "What this bot can do"},
	}
}

// UserGetter loads a stored user.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Handlers holds the built-in command handlers.
type Handlers struct {
	sender Sender
	users  UserGetter
}

// NewHandlers creates the built-in handlers.
func NewHandlers(sender Sender, users UserGetter) *Handlers {
	return &Handlers{sender: sender, users: users}
}

// Register adds the built-in commands to r.
func (h *Handlers) Register(r *Router) {
	r.Command("start", h.Start)
	r.Command("help", h.Help)
}

// Start greets the sender.
func (h *Handlers) Start(ctx context.Context, msg *Message) error {
	if msg.From == nil {
		return nil
	}
	user, err := h.users.GetUser(ctx, msg.From.ID)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	text := fmt.Sprintf("Hello, %s!", html.EscapeString(user.DisplayName()))
	if IsAdminFromContext(ctx) {
		text += "\nYou are registered as an admin."
	}
	return h.sender.Send(ctx, msg.Chat.ID, text)
}

// Help lists the available commands.
func (h *Handlers) Help(ctx context.Context, msg *Message) error {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, c := range DefaultCommands() {
		fmt.Fprintf(&b, "/%s - %s\n", c.Command, c.Description)
	}
	return h.sender.Send(ctx, msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}
