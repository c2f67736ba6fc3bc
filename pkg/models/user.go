package models

import "time"

// User is a person who talked to the bot, keyed by their Telegram user id.
//
// IsActive doubles as a soft-delete flag: users who blocked the bot or whose
// chat disappeared are deactivated instead of removed.
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	FirstName  string    `gorm:"size:64" json:"first_name"`
	LastName   string    `gorm:"size:64" json:"last_name,omitempty"`
	Username   string    `gorm:"size:32;index" json:"username,omitempty"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`
	IsReminded bool      `gorm:"not null;default:false" json:"is_reminded"`
	LastActive time.Time `gorm:"not null;index" json:"last_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Items []Item `gorm:"foreignKey:UserID" json:"items,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// DisplayName returns "First Last", falling back to @username and the id.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "user"
	}
}

// UserCount is the user statistics payload.
type UserCount struct {
	UserCount int64 `json:"user_count"`
}
