package models

import "errors"

var (
	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Item errors
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidItemType = errors.New("invalid item type")

	// Admin errors
	ErrAdminNotFound      = errors.New("admin not found")
	ErrDuplicateAdmin     = errors.New("admin already exists")
	ErrAdminDisabled      = errors.New("admin account is disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
