package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/gymlog/internal/domain/user"
	"github.com/geocoder89/gymlog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, first_name, last_name, profile_image_url, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	notFound := false

	err := r.prom.ObserveDB("users.get", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.Email,
			&u.FirstName,
			&u.LastName,
			&u.ProfileImageURL,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			notFound = true
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}
	if notFound {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Upsert relies on INSERT ... ON CONFLICT so concurrent logins for one subject never
// produce duplicate rows or lost updates.
func (r *UsersRepo) Upsert(ctx context.Context, in user.UpsertUser) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.upsert", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (id, email, first_name, last_name, profile_image_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE
				SET email = EXCLUDED.email,
					first_name = EXCLUDED.first_name,
					last_name = EXCLUDED.last_name,
					profile_image_url = EXCLUDED.profile_image_url,
					updated_at = NOW()
			RETURNING `+userColumns,
			in.ID,
			in.Email,
			in.FirstName,
			in.LastName,
			in.ProfileImageURL,
		).Scan(
			&u.ID,
			&u.Email,
			&u.FirstName,
			&u.LastName,
			&u.ProfileImageURL,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		// the id conflict is handled above, so a unique violation here is the email index
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}
