package testkit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/google/uuid"
)

// UserStore keeps users and provider links in memory and enforces the same
// uniqueness rules as the users table.
type UserStore struct {
	mu    sync.Mutex
	users []*models.User
	links map[string]uuid.UUID
}

func NewUserStore() *UserStore {
	return &UserStore{links: map[string]uuid.UUID{}}
}

func (s *UserStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	return s.first(func(u *models.User) bool {
		return eq(u.Email, identifier) || eq(u.Username, strings.ToLower(identifier)) || eq(u.Phone, identifier)
	})
}

func (s *UserStore) FindByEmailOrPhone(_ context.Context, target string) (*models.User, error) {
	return s.first(func(u *models.User) bool {
		return eq(u.Email, target) || eq(u.Phone, target)
	})
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.first(func(u *models.User) bool { return u.ID == id })
}

func (s *UserStore) FindByProvider(_ context.Context, provider, subject string) (*models.User, error) {
	s.mu.Lock()
	id, ok := s.links[provider+"|"+subject]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.first(func(u *models.User) bool { return u.ID == id })
}

func (s *UserStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.ID == u.ID || clash(x.Email, u.Email) || clash(x.Phone, u.Phone) || clash(x.Username, u.Username) {
			return models.ErrConflict
		}
	}
	cp := *u
	s.users = append(s.users, &cp)
	return nil
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			h := hash
			u.PasswordHash = &h
			u.UpdatedAt = now
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *UserStore) LinkProvider(_ context.Context, acct *models.OAuthAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := acct.Provider + "|" + acct.ProviderUID
	if _, ok := s.links[key]; !ok {
		s.links[key] = acct.UserID
	}
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *UserStore) first(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func eq(p *string, v string) bool {
	return p != nil && *p == v
}

func clash(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
