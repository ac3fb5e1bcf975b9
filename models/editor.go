package models

import (
	"time"

	"github.com/google/uuid"
)

// Editor represents an authenticated human actor permitted to mutate
// transcript content. Rows are keyed by normalized (trimmed, lowercased)
// email, so repeat logins resolve to the same record.
type Editor struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	LoginTime time.Time `json:"login_time"`
	CreatedAt time.Time `json:"created_at"`
}
