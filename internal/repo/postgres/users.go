package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/domain/user"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, obs: obs}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := observe(r.obs, "users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)

		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.get(ctx, "users.get_by_email", `WHERE email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.get(ctx, "users.get_by_id", `WHERE id = $1`, id)
}

func (r *UsersRepo) get(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := observe(r.obs, op, func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, email, password_hash, refresh_token_hash, created_at, updated_at
			 FROM users `+where,
			arg,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.RefreshTokenHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// SetRefreshTokenHash overwrites the single refresh-hash slot; nil clears it.
// Rotation is a plain last-write-wins UPDATE: two concurrent refreshes may
// both pass verification, after which the earlier writer's token is dead on
// its next use. Accepted narrow race, see handler notes.
func (r *UsersRepo) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	var tag pgconn.CommandTag

	err := observe(r.obs, "users.set_refresh_hash", func() error {
		var err error

		tag, err = r.pool.Exec(ctx,
			`UPDATE users
			 SET refresh_token_hash = $2, updated_at = NOW()
			 WHERE id = $1`,
			id, hash,
		)

		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
