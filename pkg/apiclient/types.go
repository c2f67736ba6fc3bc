package apiclient

import (
	"time"

	"github.com/marmos91/botkit/pkg/models"
)

// Item is the external representation of models.Item.
type Item struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	ItemType  string    `json:"item_type"`
	UserID    int64     `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemFromModel converts a stored item.
func ItemFromModel(m *models.Item) Item {
	return Item{
		ID:        m.ID,
		Title:     m.Title,
		ItemType:  string(m.Type),
		UserID:    m.UserID,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserData is an opaque user record of the external API.
type UserData map[string]any
