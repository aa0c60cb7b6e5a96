package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/userauth-server/internal/mocks"
	"github.com/dtroode/userauth-server/internal/model"
	"github.com/dtroode/userauth-server/internal/password"
	"github.com/dtroode/userauth-server/internal/repository/memory"
	"github.com/dtroode/userauth-server/internal/testutil"
	"github.com/dtroode/userauth-server/internal/token"
)

const dummyDigest = "$dummy"

func emailCriteria(email string) model.Criteria {
	return model.Criteria{model.FieldEmail: email}
}

// newMockedAuth builds Auth over mocks. The first Hash call prepares the dummy digest.
func newMockedAuth(t *testing.T) (*Auth, *mocks.UserStore, *mocks.PasswordHasher, *mocks.SessionIDGenerator) {
	t.Helper()

	store := mocks.NewUserStore(t)
	hasher := mocks.NewPasswordHasher(t)
	gen := mocks.NewSessionIDGenerator(t)

	hasher.On("Hash", mock.AnythingOfType("string")).Return(dummyDigest, nil).Once()

	a, err := NewAuth(store, hasher, gen, testutil.MakeNoopLogger())
	require.NoError(t, err)

	return a, store, hasher, gen
}

// newScenarioAuth builds Auth over the in-memory store and real collaborators.
func newScenarioAuth(t *testing.T) (*Auth, *memory.UserRepository) {
	t.Helper()

	hasher, err := password.NewHasher(password.AlgorithmBcrypt, bcrypt.MinCost, password.NewArgon2idParams(1, 8*1024, 1))
	require.NoError(t, err)

	store := memory.NewUserRepository()
	a, err := NewAuth(store, hasher, token.NewSessionID(), testutil.MakeNoopLogger())
	require.NoError(t, err)

	return a, store
}

func TestNewAuth_HashFailure(t *testing.T) {
	hasher := mocks.NewPasswordHasher(t)
	hasher.On("Hash", mock.Anything).Return("", errors.New("boom"))

	a, err := NewAuth(mocks.NewUserStore(t), hasher, mocks.NewSessionIDGenerator(t), testutil.MakeNoopLogger())
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestAuth_RegisterUser(t *testing.T) {
	ctx := context.Background()
	created := model.User{ID: uuid.New(), Email: "a@x.com", HashedPassword: "digest"}

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(store *mocks.UserStore, hasher *mocks.PasswordHasher)
		wantErr  error
		wantUser model.User
	}{
		{
			name:     "new user",
			email:    "a@x.com",
			password: "pw1",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, model.ErrNotFound)
				hasher.On("Hash", "pw1").Return("digest", nil)
				store.On("Add", mock.Anything, "a@x.com", "digest").Return(created, nil)
			},
			wantUser: created,
		},
		{
			name:     "existing user performs no write",
			email:    "a@x.com",
			password: "pw1",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(created, nil)
			},
			wantErr: model.ErrDuplicateUser,
		},
		{
			name:     "lost registration race",
			email:    "a@x.com",
			password: "pw1",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, model.ErrNotFound)
				hasher.On("Hash", "pw1").Return("digest", nil)
				store.On("Add", mock.Anything, "a@x.com", "digest").
					Return(model.User{}, model.ConstraintError{Op: "Add", Field: string(model.FieldEmail)})
			},
			wantErr: model.ErrDuplicateUser,
		},
		{
			name:     "other constraint is not a duplicate",
			email:    "a@x.com",
			password: "pw1",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, model.ErrNotFound)
				hasher.On("Hash", "pw1").Return("digest", nil)
				store.On("Add", mock.Anything, "a@x.com", "digest").
					Return(model.User{}, model.ConstraintError{Op: "Add", Field: string(model.FieldID)})
			},
			wantErr: model.ErrConstraint,
		},
		{
			name:     "lookup failure propagates",
			email:    "a@x.com",
			password: "pw1",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, assert.AnError)
			},
			wantErr: assert.AnError,
		},
		{
			name:     "hash failure propagates",
			email:    "a@x.com",
			password: "pw1",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, model.ErrNotFound)
				hasher.On("Hash", "pw1").Return("", model.ErrInvalidInput)
			},
			wantErr: model.ErrInvalidInput,
		},
		{
			name:     "empty email",
			email:    "",
			password: "pw1",
			setup:    func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {},
			wantErr:  model.ErrInvalidInput,
		},
		{
			name:    "empty password",
			email:   "a@x.com",
			setup:   func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {},
			wantErr: model.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, store, hasher, _ := newMockedAuth(t)
			tt.setup(store, hasher)

			got, err := a.RegisterUser(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, model.User{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, got)
		})
	}
}

func TestAuth_ValidLogin(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@x.com", HashedPassword: "digest"}

	tests := []struct {
		name    string
		setup   func(store *mocks.UserStore, hasher *mocks.PasswordHasher)
		want    bool
		wantErr error
	}{
		{
			name: "correct password",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				hasher.On("Verify", "digest", "pw1").Return(true, nil)
			},
			want: true,
		},
		{
			name: "wrong password",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				hasher.On("Verify", "digest", "pw1").Return(false, nil)
			},
		},
		{
			name: "unknown email still verifies against the dummy digest",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, model.ErrNotFound)
				hasher.On("Verify", dummyDigest, "pw1").Return(false, nil).Once()
			},
		},
		{
			name: "malformed stored digest",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				hasher.On("Verify", "digest", "pw1").Return(false, model.ErrMalformedDigest)
			},
			wantErr: model.ErrMalformedDigest,
		},
		{
			name: "storage failure",
			setup: func(store *mocks.UserStore, hasher *mocks.PasswordHasher) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, store, hasher, _ := newMockedAuth(t)
			tt.setup(store, hasher)

			ok, err := a.ValidLogin(ctx, "a@x.com", "pw1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAuth_CreateSession(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@x.com"}

	tests := []struct {
		name      string
		setup     func(store *mocks.UserStore, gen *mocks.SessionIDGenerator)
		wantToken string
		wantOK    bool
		wantErr   error
	}{
		{
			name: "registered email",
			setup: func(store *mocks.UserStore, gen *mocks.SessionIDGenerator) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				gen.On("Generate").Return("tok", nil)
				store.On("Update", mock.Anything, user.ID, model.Patch{model.FieldSessionID: "tok"}).Return(nil)
			},
			wantToken: "tok",
			wantOK:    true,
		},
		{
			name: "unknown email",
			setup: func(store *mocks.UserStore, gen *mocks.SessionIDGenerator) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(model.User{}, model.ErrNotFound)
			},
		},
		{
			name: "user vanished before update",
			setup: func(store *mocks.UserStore, gen *mocks.SessionIDGenerator) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				gen.On("Generate").Return("tok", nil)
				store.On("Update", mock.Anything, user.ID, mock.Anything).Return(model.ErrNotFound)
			},
		},
		{
			name: "generator failure",
			setup: func(store *mocks.UserStore, gen *mocks.SessionIDGenerator) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				gen.On("Generate").Return("", assert.AnError)
			},
			wantErr: assert.AnError,
		},
		{
			name: "update failure",
			setup: func(store *mocks.UserStore, gen *mocks.SessionIDGenerator) {
				store.On("FindBy", mock.Anything, emailCriteria("a@x.com")).Return(user, nil)
				gen.On("Generate").Return("tok", nil)
				store.On("Update", mock.Anything, user.ID, mock.Anything).Return(assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, store, _, gen := newMockedAuth(t)
			tt.setup(store, gen)

			tok, ok, err := a.CreateSession(ctx, "a@x.com")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, tok)
		})
	}
}

func TestAuth_GetUserFromSessionID(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@x.com"}

	t.Run("empty token skips the store", func(t *testing.T) {
		a, store, _, _ := newMockedAuth(t)

		_, ok, err := a.GetUserFromSessionID(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
		store.AssertNotCalled(t, "FindBy", mock.Anything, mock.Anything)
	})

	t.Run("known token", func(t *testing.T) {
		a, store, _, _ := newMockedAuth(t)
		store.On("FindBy", mock.Anything, model.Criteria{model.FieldSessionID: "tok"}).Return(user, nil)

		got, ok, err := a.GetUserFromSessionID(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, user, got)
	})

	t.Run("unknown token", func(t *testing.T) {
		a, store, _, _ := newMockedAuth(t)
		store.On("FindBy", mock.Anything, mock.Anything).Return(model.User{}, model.ErrNotFound)

		_, ok, err := a.GetUserFromSessionID(ctx, "tok")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("storage failure", func(t *testing.T) {
		a, store, _, _ := newMockedAuth(t)
		store.On("FindBy", mock.Anything, mock.Anything).Return(model.User{}, assert.AnError)

		_, ok, err := a.GetUserFromSessionID(ctx, "tok")
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, ok)
	})
}

func TestAuth_DestroySession(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	clear := model.Patch{model.FieldSessionID: nil}

	tests := []struct {
		name      string
		updateErr error
		wantErr   error
	}{
		{name: "clears session"},
		{name: "missing user is a no-op", updateErr: model.ErrNotFound},
		{name: "storage failure", updateErr: assert.AnError, wantErr: assert.AnError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, store, _, _ := newMockedAuth(t)
			store.On("Update", mock.Anything, id, clear).Return(tt.updateErr)

			err := a.DestroySession(ctx, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAuth_Scenario(t *testing.T) {
	ctx := context.Background()
	a, store := newScenarioAuth(t)

	user, err := a.RegisterUser(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEqual(t, "pw1", user.HashedPassword)

	_, err = a.RegisterUser(ctx, "a@x.com", "pw1")
	require.ErrorIs(t, err, model.ErrDuplicateUser)
	assert.Equal(t, 1, store.Len())

	ok, err := a.ValidLogin(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.ValidLogin(ctx, "a@x.com", "pw2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.ValidLogin(ctx, "nobody@x.com", "pw1")
	require.NoError(t, err)
	assert.False(t, ok)

	tok, ok, err := a.CreateSession(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, tok)

	got, ok, err := a.GetUserFromSessionID(ctx, tok)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "a@x.com", got.Email)

	require.NoError(t, a.DestroySession(ctx, user.ID))
	_, ok, err = a.GetUserFromSessionID(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.DestroySession(ctx, user.ID))
	require.NoError(t, a.DestroySession(ctx, uuid.New()))
}

func TestAuth_Scenario_UnknownEmailHasNoSession(t *testing.T) {
	a, _ := newScenarioAuth(t)

	tok, ok, err := a.CreateSession(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestAuth_Scenario_NewSessionReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	a, _ := newScenarioAuth(t)

	_, err := a.RegisterUser(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	first, _, err := a.CreateSession(ctx, "a@x.com")
	require.NoError(t, err)
	second, _, err := a.CreateSession(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, ok, err := a.GetUserFromSessionID(ctx, first)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.GetUserFromSessionID(ctx, second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuth_Scenario_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	a, store := newScenarioAuth(t)

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.RegisterUser(ctx, "race@x.com", "pw1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, model.ErrDuplicateUser):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicates)
	assert.Equal(t, 1, store.Len())
}
