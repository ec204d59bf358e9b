package gymclass

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/gymlog/internal/validation"
)

// Store is the owner-scoped persistence contract. Lookups by id must filter on ownerID and
// report ErrNotFound for records that belong to somebody else.
type Store interface {
	Create(ctx context.Context, g GymClass) (GymClass, error)
	GetByID(ctx context.Context, ownerID, id string) (GymClass, error)
	ListByOwner(ctx context.Context, ownerID string) ([]GymClass, error)
	Update(ctx context.Context, ownerID, id string, c Changes) (GymClass, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

// Service validates input and enforces ownership before touching the Store.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) List(ctx context.Context, uid string) ([]GymClass, error) {
	items, err := s.store.ListByOwner(ctx, uid)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}

	if items == nil {
		items = []GymClass{}
	}

	return items, nil
}

func (s *Service) Get(ctx context.Context, uid, id string) (GymClass, error) {
	g, err := s.store.GetByID(ctx, uid, id)
	if err != nil {
		return GymClass{}, classify("get", err)
	}

	return g, nil
}

// Create validates req, attaches uid as the owner and persists the record.
// A *validation.ValidationError is returned before the store is called.
func (s *Service) Create(ctx context.Context, uid string, req CreateGymClassRequest) (GymClass, error) {
	if err := validation.Struct(req); err != nil {
		return GymClass{}, err
	}

	g := NewFromCreateRequest(uid, req, s.now())

	created, err := s.store.Create(ctx, g)
	if err != nil {
		return GymClass{}, &StoreError{Op: "create", Err: err}
	}

	return created, nil
}

// Update persists only the supplied fields. An update without fields returns the current record.
func (s *Service) Update(ctx context.Context, uid, id string, req UpdateGymClassRequest) (GymClass, error) {
	if err := validation.Struct(req); err != nil {
		return GymClass{}, err
	}

	changes := Changes{
		Date:       req.Date,
		Attendance: req.Attendance,
		Notes:      req.Notes,
	}

	if changes.Empty() {
		return s.Get(ctx, uid, id)
	}

	updated, err := s.store.Update(ctx, uid, id, changes)
	if err != nil {
		return GymClass{}, classify("update", err)
	}

	return updated, nil
}

// Delete reports whether a record was removed. A missing record is not an error.
func (s *Service) Delete(ctx context.Context, uid, id string) (bool, error) {
	deleted, err := s.store.Delete(ctx, uid, id)
	if err != nil {
		return false, &StoreError{Op: "delete", Err: err}
	}

	return deleted, nil
}

func classify(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}

	return &StoreError{Op: op, Err: err}
}
