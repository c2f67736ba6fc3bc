package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/botkit/pkg/models"
)

// DefaultReminderText is sent to inactive users.
const DefaultReminderText = "Where are you?"

// ReminderConfig configures the inactive-user reminder.
type ReminderConfig struct {
	// InactiveAfter is how long a user must have been silent.
	InactiveAfter time.Duration `mapstructure:"inactive_after" yaml:"inactive_after"`

	Text string `mapstructure:"text" yaml:"text"`
}

// ApplyDefaults fills in 72h and DefaultReminderText.
func (c *ReminderConfig) ApplyDefaults() {
	if c.InactiveAfter == 0 {
		c.InactiveAfter = 72 * time.Hour
	}
	if c.Text == "" {
		c.Text = DefaultReminderText
	}
}

// ReminderStore is the data access the reminder needs.
type ReminderStore interface {
	ListUsersForReminder(ctx context.Context, inactiveSince time.Time) ([]*models.User, error)
}

// Reminder selects inactive users and dispatches the reminder to them.
type Reminder struct {
	store      ReminderStore
	dispatcher *Dispatcher
	config     ReminderConfig
	now        func() time.Time
}

// NewReminder creates a Reminder.
func NewReminder(store ReminderStore, dispatcher *Dispatcher, cfg ReminderConfig) *Reminder {
	cfg.ApplyDefaults()
	return &Reminder{
		store:      store,
		dispatcher: dispatcher,
		config:     cfg,
		now:        time.Now,
	}
}

// Recipients returns the ids of the users due for a reminder.
func (r *Reminder) Recipients(ctx context.Context) ([]int64, error) {
	users, err := r.store.ListUsersForReminder(ctx, r.now().UTC().Add(-r.config.InactiveAfter))
	if err != nil {
		return nil, fmt.Errorf("list users for reminder: %w", err)
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

// Run reminds every due user. An empty selection is not an error and
// returns an empty report.
func (r *Reminder) Run(ctx context.Context) (*Report, error) {
	ids, err := r.Recipients(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &Report{}, nil
	}
	return r.dispatcher.Run(ctx, ids, r.config.Text)
}
