package model

import "time"

// WatchlistState is the persisted watchlist of every user.
type WatchlistState struct {
	Users     map[string][]string `json:"users"`
	UpdatedAt time.Time           `json:"updated_at"`
}
