package models

import (
	"fmt"
	"time"
)

// ItemType classifies an Item.
type ItemType string

const (
	ItemTypeOption1 ItemType = "option_1"
	ItemTypeOption2 ItemType = "option_2"
)

// IsValid checks if the type is a known ItemType.
func (t ItemType) IsValid() bool {
	return t == ItemTypeOption1 || t == ItemTypeOption2
}

// ParseItemType converts a string to an ItemType.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidItemType, s)
	}
	return t, nil
}

// Item is a thing owned by a User. Items are pushed to the external API by
// the sync job.
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	Type      ItemType  `gorm:"column:item_type;size:16;not null" json:"item_type"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName returns the table name for Item.
func (Item) TableName() string {
	return "items"
}

// Validate checks the fields required to persist an item.
func (i *Item) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("item title is required")
	}
	if len(i.Title) > 128 {
		return fmt.Errorf("item title exceeds 128 characters")
	}
	if !i.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidItemType, i.Type)
	}
	if i.UserID == 0 {
		return fmt.Errorf("item owner is required")
	}
	return nil
}
