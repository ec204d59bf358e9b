package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/gymlog/internal/domain/user"
)

type UsersRepo struct {
	mu    sync.Mutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	u, ok := r.items[id]
	r.mu.Unlock()

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Upsert holds the lock across the check and the write, so concurrent calls for one id
// collapse into a single row.
func (r *UsersRepo) Upsert(ctx context.Context, in user.UpsertUser) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if in.Email != nil {
		for id, other := range r.items {
			if id != in.ID && other.Email != nil && *other.Email == *in.Email {
				return user.User{}, user.ErrEmailTaken
			}
		}
	}

	now := time.Now().UTC()

	u, ok := r.items[in.ID]
	if !ok {
		u = user.User{ID: in.ID, CreatedAt: now}
	}

	u.Email = in.Email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.ProfileImageURL = in.ProfileImageURL
	u.UpdatedAt = now

	r.items[in.ID] = u

	return u, nil
}

// Count returns the number of stored users.
func (r *UsersRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
