package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/userauth-server/internal/logger"
	"github.com/dtroode/userauth-server/internal/model"
)

// Auth implements registration, credential checks and the session lifecycle.
type Auth struct {
	userStore model.UserStore
	hasher    model.PasswordHasher
	sessions  model.SessionIDGenerator
	logger    *logger.Logger

	// dummyDigest is verified for unknown emails so both login failure
	// paths spend the same hashing work.
	dummyDigest string
}

func NewAuth(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	sessions model.SessionIDGenerator,
	logger *logger.Logger,
) (*Auth, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read random seed: %w", err)
	}

	dummy, err := hasher.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}

	return &Auth{
		userStore:   userStore,
		hasher:      hasher,
		sessions:    sessions,
		logger:      logger,
		dummyDigest: dummy,
	}, nil
}

func (a *Auth) RegisterUser(ctx context.Context, email, password string) (model.User, error) {
	a.logger.Debug("Auth service: registering user",
		"email", email)

	if email == "" || password == "" {
		return model.User{}, fmt.Errorf("%w: email and password are required", model.ErrInvalidInput)
	}

	_, err := a.userStore.FindBy(ctx, model.Criteria{model.FieldEmail: email})
	if err == nil {
		a.logger.Info("Auth service: user already exists",
			"email", email)
		return model.User{}, model.ErrDuplicateUser
	}
	if !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	digest, err := a.hasher.Hash(password)
	if err != nil {
		a.logger.Error("Auth service: failed to hash password",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.userStore.Add(ctx, email, digest)
	if err != nil {
		if model.IsConstraintOn(err, model.FieldEmail) {
			a.logger.Info("Auth service: user registered concurrently",
				"email", email)
			return model.User{}, model.ErrDuplicateUser
		}
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered successfully",
		"email", email,
		"user_id", user.ID)

	return user, nil
}

// ValidLogin reports whether password matches the digest stored for email.
// Unknown emails are checked against a dummy digest and yield false.
func (a *Auth) ValidLogin(ctx context.Context, email, password string) (bool, error) {
	user, err := a.userStore.FindBy(ctx, model.Criteria{model.FieldEmail: email})
	if errors.Is(err, model.ErrNotFound) {
		_, _ = a.hasher.Verify(a.dummyDigest, password)
		a.logger.Debug("Auth service: login for unknown email",
			"email", email)
		return false, nil
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return false, fmt.Errorf("failed to get user by email: %w", err)
	}

	ok, err := a.hasher.Verify(user.HashedPassword, password)
	if err != nil {
		a.logger.Error("Auth service: failed to verify password",
			"user_id", user.ID,
			"error", err.Error())
		return false, fmt.Errorf("failed to verify password: %w", err)
	}

	if !ok {
		a.logger.Debug("Auth service: password mismatch",
			"user_id", user.ID)
	}

	return ok, nil
}

// CreateSession issues a fresh session id for email, replacing any previous one.
// ok is false when no such user exists.
func (a *Auth) CreateSession(ctx context.Context, email string) (string, bool, error) {
	user, err := a.userStore.FindBy(ctx, model.Criteria{model.FieldEmail: email})
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Debug("Auth service: session requested for unknown email",
			"email", email)
		return "", false, nil
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return "", false, fmt.Errorf("failed to get user by email: %w", err)
	}

	sessionID, err := a.sessions.Generate()
	if err != nil {
		a.logger.Error("Auth service: failed to generate session id",
			"user_id", user.ID,
			"error", err.Error())
		return "", false, fmt.Errorf("failed to generate session id: %w", err)
	}

	err = a.userStore.Update(ctx, user.ID, model.Patch{model.FieldSessionID: sessionID})
	if errors.Is(err, model.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		a.logger.Error("Auth service: failed to store session",
			"user_id", user.ID,
			"error", err.Error())
		return "", false, fmt.Errorf("failed to store session: %w", err)
	}

	a.logger.Info("Auth service: session created",
		"user_id", user.ID)

	return sessionID, true, nil
}

func (a *Auth) GetUserFromSessionID(ctx context.Context, sessionID string) (model.User, bool, error) {
	if sessionID == "" {
		return model.User{}, false, nil
	}

	user, err := a.userStore.FindBy(ctx, model.Criteria{model.FieldSessionID: sessionID})
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, false, nil
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by session",
			"error", err.Error())
		return model.User{}, false, fmt.Errorf("failed to get user by session: %w", err)
	}

	return user, true, nil
}

// DestroySession clears the user's session. A missing user is not an error.
func (a *Auth) DestroySession(ctx context.Context, userID uuid.UUID) error {
	err := a.userStore.Update(ctx, userID, model.Patch{model.FieldSessionID: nil})
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Debug("Auth service: session destroy for missing user",
			"user_id", userID)
		return nil
	}
	if err != nil {
		a.logger.Error("Auth service: failed to clear session",
			"user_id", userID,
			"error", err.Error())
		return fmt.Errorf("failed to clear session: %w", err)
	}

	a.logger.Info("Auth service: session destroyed",
		"user_id", userID)

	return nil
}
