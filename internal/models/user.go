package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is the slice of a user the workflow needs at entry.
type Account struct {
	UserID  uuid.UUID
	Credits int
}
