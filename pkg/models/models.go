// Package models defines the persisted botkit entities.
package models

// AllModels returns every model managed by the schema, in dependency order.
func AllModels() []any {
	return []any{
		&User{},
		&Item{},
		&Admin{},
	}
}
