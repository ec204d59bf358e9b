package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/gymlog/internal/domain/gymclass"
)

type GymClassesRepo struct {
	mu    sync.RWMutex
	items map[string]gymclass.GymClass // id -> record
}

func NewGymClassesRepo() *GymClassesRepo {
	return &GymClassesRepo{
		items: make(map[string]gymclass.GymClass),
	}
}

func (r *GymClassesRepo) Create(ctx context.Context, g gymclass.GymClass) (gymclass.GymClass, error) {
	if err := ctx.Err(); err != nil {
		return gymclass.GymClass{}, err
	}

	r.mu.Lock()
	r.items[g.ID] = copyGymClass(g)
	r.mu.Unlock()

	return copyGymClass(g), nil
}

func (r *GymClassesRepo) GetByID(ctx context.Context, ownerID, id string) (gymclass.GymClass, error) {
	if err := ctx.Err(); err != nil {
		return gymclass.GymClass{}, err
	}

	r.mu.RLock()
	g, ok := r.items[id]
	r.mu.RUnlock()

	if !ok || g.UserID != ownerID {
		return gymclass.GymClass{}, gymclass.ErrNotFound
	}

	return copyGymClass(g), nil
}

func (r *GymClassesRepo) ListByOwner(ctx context.Context, ownerID string) ([]gymclass.GymClass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]gymclass.GymClass, 0)
	for _, g := range r.items {
		if g.UserID == ownerID {
			out = append(out, copyGymClass(g))
		}
	}
	r.mu.RUnlock()

	// same ordering as the postgres store: date desc, created_at desc, id
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *GymClassesRepo) Update(ctx context.Context, ownerID, id string, c gymclass.Changes) (gymclass.GymClass, error) {
	if err := ctx.Err(); err != nil {
		return gymclass.GymClass{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[id]
	if !ok || g.UserID != ownerID {
		return gymclass.GymClass{}, gymclass.ErrNotFound
	}

	g = c.Apply(g)
	r.items[id] = g

	return copyGymClass(g), nil
}

func (r *GymClassesRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[id]
	if !ok || g.UserID != ownerID {
		return false, nil
	}

	delete(r.items, id)

	return true, nil
}

// callers must never share the notes pointer with the stored row
func copyGymClass(g gymclass.GymClass) gymclass.GymClass {
	if g.Notes != nil {
		n := *g.Notes
		g.Notes = &n
	}
	return g
}
