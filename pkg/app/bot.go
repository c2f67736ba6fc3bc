package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/lifecycle"
	"github.com/marmos91/botkit/pkg/metrics/prometheus"
	"github.com/marmos91/botkit/pkg/store"
	"github.com/marmos91/botkit/pkg/supervisor"
)

// ModuleBot is the name of the bot module.
const ModuleBot = "bot"

// BotModule owns the Bot API client and its long-polling loop.
type BotModule struct {
	lifecycle.Base
	cfg   bot.Config
	store store.Store
	term  lifecycle.Terminator

	client    *bot.Client
	router    *bot.Router
	poller    *bot.Poller
	task      *supervisor.Task
	closeOnce sync.Once
}

// NewBotModule creates the bot module. s backs user tracking and the admin
// lookup.
func NewBotModule(cfg bot.Config, s store.Store, term lifecycle.Terminator) *BotModule {
	return &BotModule{
		Base:  lifecycle.Base{ModuleName: ModuleBot},
		cfg:   cfg,
		store: s,
		term:  term,
	}
}

// Configure registers the command menu and builds the update router.
func (m *BotModule) Configure(ctx context.Context) error {
	if m.store == nil {
		return errors.New("bot: no store")
	}

	botMetrics := prometheus.NewBotMetrics()
	client, err := bot.New(m.cfg, bot.WithMetrics(botMetrics))
	if err != nil {
		return err
	}

	if err := client.SetMyCommands(ctx, bot.DefaultCommands()); err != nil {
		client.Close()
		return fmt.Errorf("register bot commands: %w", err)
	}

	router := bot.NewRouter(botMetrics)
	router.Use(
		bot.Recover(),
		bot.Logging(),
		bot.ChatType(),
		bot.OnlyChatTypes(client.Config().ChatTypes...),
		bot.TrackUsers(m.store),
		bot.IsAdmin(m.store),
	)
	bot.NewHandlers(client, m.store).Register(router)

	m.client = client
	m.router = router
	m.poller = bot.NewPoller(client, router)

	logger.InfoCtx(ctx, "Bot configured", "commands", router.Commands())
	return nil
}

// Start spawns the polling loop. If the loop stops on its own (revoked
// token) the process terminates.
func (m *BotModule) Start(ctx context.Context) error {
	if m.poller == nil {
		return errNotConfigured
	}
	m.task = supervisor.Spawn(ctx, "bot-poller", m.poller.Run,
		supervisor.WithOnExit(lifecycle.ExitHook(m.term, "bot poller")))
	return nil
}

// Shutdown stops polling, waits for the in-flight update, and closes the
// transport.
func (m *BotModule) Shutdown(context.Context) error {
	var err error
	if m.task != nil {
		err = m.task.Cancel()
	}
	if m.client != nil {
		m.closeOnce.Do(m.client.Close)
	}
	return err
}

// Sender returns the send-only capability, or nil before Configure.
func (m *BotModule) Sender() bot.Sender {
	if m.client == nil {
		return nil
	}
	return m.client
}

// Router returns the update router, for registering extra commands before
// Start.
func (m *BotModule) Router() *bot.Router {
	return m.router
}
