package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	Add(ctx context.Context, email, hashedPassword string) (User, error)
	FindBy(ctx context.Context, criteria Criteria) (User, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// User represents a registered principal.
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	SessionID      *string
	ResetToken     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSession reports whether the user currently holds a session.
func (u User) HasSession() bool {
	return u.SessionID != nil
}
