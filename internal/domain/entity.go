package domain

import (
	"time"
)

// WatchEntry is one saved token address in the user's watchlist.
// Addresses are stored lowercased; Position 0 is the newest entry
// (the list is prepend-on-add).
type WatchEntry struct {
	Address   string    `gorm:"primaryKey" json:"address"`
	Position  int       `json:"position" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

// AppConfig represents user-specific configuration (Key-Value).
// Used for persisted UI state such as the last view mode and filters.
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
