package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local tooling.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Identity

	// FailPresence makes SetPresence return this error when set.
	FailPresence error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Identity)}
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (s *MemoryStore) GetByIdentifier(_ context.Context, identifier string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email := strings.ToLower(identifier)
	for _, u := range s.users {
		if u.Username == identifier || u.Email == email {
			return u, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, p CreateParams) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == p.Username {
			return Identity{}, ErrUsernameTaken
		}
		if u.Email == p.Email {
			return Identity{}, ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	profile := p.Profile
	if profile.JoinedDate.IsZero() {
		profile.JoinedDate = now
	}

	u := Identity{
		ID:           uuid.NewString(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Profile:      profile,
		Verification: Verification{Badge: BadgeNone},
		IsActive:     true,
		LastSeen:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) SetPresence(_ context.Context, id string, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPresence != nil {
		return s.FailPresence
	}

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsOnline = online
	u.LastSeen = lastSeen
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, up ProfileUpdate) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if up.DisplayName != nil {
		u.Profile.DisplayName = *up.DisplayName
	}
	if up.Bio != nil {
		u.Profile.Bio = *up.Bio
	}
	if up.Avatar != nil {
		u.Profile.Avatar = *up.Avatar
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

// Put stores u as is, replacing any account with the same ID.
func (s *MemoryStore) Put(u Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}
