package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Store interface {
	GetByID(ctx context.Context, id string) (User, error)
	Upsert(ctx context.Context, u UpsertUser) (User, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Current returns the identity record for uid or ErrNotFound.
func (s *Service) Current(ctx context.Context, uid string) (User, error) {
	u, err := s.store.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user %s: %w", uid, err)
	}

	return u, nil
}

// SyncIdentity creates or refreshes the identity record after a successful login.
func (s *Service) SyncIdentity(ctx context.Context, in UpsertUser) (User, error) {
	if strings.TrimSpace(in.ID) == "" {
		return User{}, errors.New("identity subject is empty")
	}

	in.Email = blankToNil(in.Email)
	in.FirstName = blankToNil(in.FirstName)
	in.LastName = blankToNil(in.LastName)
	in.ProfileImageURL = blankToNil(in.ProfileImageURL)

	u, err := s.store.Upsert(ctx, in)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("upsert user %s: %w", in.ID, err)
	}

	return u, nil
}

// empty claims are stored as NULL so the unique email index never sees ""
func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
