// Package memory provides an in-process UserStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/userauth-server/internal/model"
)

var (
	_ model.UserStore = (*UserRepository)(nil)
	_ model.Pinger    = (*UserRepository)(nil)
)

// UserRepository keeps users in insertion order behind a single lock.
// Email and session id uniqueness are enforced like the SQL backends do.
type UserRepository struct {
	mu    sync.RWMutex
	users []model.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{now: time.Now}
}

func (r *UserRepository) Add(ctx context.Context, email, hashedPassword string) (model.User, error) {
	const op = "memory.UserRepository.Add"

	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}

	if email == "" {
		return model.User{}, model.ConstraintError{Op: op, Field: string(model.FieldEmail)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return model.User{}, model.ConstraintError{Op: op, Field: string(model.FieldEmail)}
		}
	}

	now := r.now().UTC()
	user := model.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.users = append(r.users, user)

	return cloneUser(user), nil
}

func (r *UserRepository) FindBy(ctx context.Context, criteria model.Criteria) (model.User, error) {
	terms, err := criteria.Terms()
	if err != nil {
		return model.User{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if matchesAll(u, terms) {
			return cloneUser(u), nil
		}
	}

	return model.User{}, model.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, patch model.Patch) error {
	const op = "memory.UserRepository.Update"

	terms, err := patch.Terms()
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, u := range r.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.ErrNotFound
	}

	updated := cloneUser(r.users[idx])
	for _, t := range terms {
		updated.Apply(t)
	}

	for i, u := range r.users {
		if i == idx {
			continue
		}
		if u.Email == updated.Email {
			return model.ConstraintError{Op: op, Field: string(model.FieldEmail)}
		}
		if updated.SessionID != nil && u.SessionID != nil && *u.SessionID == *updated.SessionID {
			return model.ConstraintError{Op: op, Field: string(model.FieldSessionID)}
		}
	}

	updated.UpdatedAt = r.now().UTC()
	r.users[idx] = updated

	return nil
}

// Ping always succeeds.
func (r *UserRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func matchesAll(u model.User, terms []model.Term) bool {
	for _, t := range terms {
		if !t.Matches(u) {
			return false
		}
	}
	return true
}

// cloneUser copies pointer fields so callers cannot mutate stored records.
func cloneUser(u model.User) model.User {
	if u.SessionID != nil {
		s := *u.SessionID
		u.SessionID = &s
	}
	if u.ResetToken != nil {
		s := *u.ResetToken
		u.ResetToken = &s
	}
	return u
}
