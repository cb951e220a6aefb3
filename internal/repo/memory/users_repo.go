package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/repo/postgres"
)

// UsersRepo mirrors the postgres users repo for tests and DB-less runs.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(_ context.Context, email, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.items {
		if u.Email == email {
			return user.User{}, postgres.ErrEmailTaken
		}
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, postgres.ErrUserNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return u, nil
}

func (r *UsersRepo) SetRefreshTokenHash(_ context.Context, id string, hash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	if hash != nil {
		v := *hash
		u.RefreshTokenHash = &v
	} else {
		u.RefreshTokenHash = nil
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return nil
}
