package domain

import "time"

type App struct {
	ID        string    `json:"id"` // prefixed, e.g. "app_abc123"
	OwnerID   string    `json:"owner_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
