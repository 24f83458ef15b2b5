package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/karimdhz/atelier-portal/internal/model"
	"github.com/karimdhz/atelier-portal/internal/utils"
)

// MemoryStore is an in-memory UserStore used by tests.  It applies the same
// normalization and hashing rules as the MySQL implementation so handler and
// middleware behavior can be exercised without a database.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User

	// FailAll makes every call return this error, simulating an
	// unreachable store.
	FailAll error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, users: make(map[uint64]model.User)}
}

func (s *MemoryStore) Create(_ context.Context, name, email, password string, role model.Role, status model.ApprovalStatus, cost int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return 0, s.FailAll
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return 0, ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	id := s.nextID
	s.nextID++
	s.users[id] = model.User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return id, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return model.User{}, s.FailAll
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s *MemoryStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return model.User{}, s.FailAll
	}
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return nil, s.FailAll
	}
	return s.collect(func(model.User) bool { return true }), nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return nil, s.FailAll
	}
	return s.collect(func(u model.User) bool { return u.Status == model.StatusPending }), nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id uint64, status model.ApprovalStatus) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return model.User{}, s.FailAll
	}
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id uint64, name, email string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return s.FailAll
	}
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for otherID, other := range s.users {
		if otherID != id && other.Email == email {
			return ErrEmailExists
		}
	}
	u.Name = strings.TrimSpace(name)
	u.Email = email
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id uint64, password string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return s.FailAll
	}
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetTokenHash = nil
	u.ResetExpires = nil
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *MemoryStore) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return s.FailAll
	}
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	t := at.UTC()
	u.LastLogin = &t
	s.users[id] = u
	return nil
}

func (s *MemoryStore) SetResetToken(_ context.Context, id uint64, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return s.FailAll
	}
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	exp := expires.UTC()
	u.ResetTokenHash = &tokenHash
	u.ResetExpires = &exp
	s.users[id] = u
	return nil
}

func (s *MemoryStore) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return 0, s.FailAll
	}
	var n int64
	for id, u := range s.users {
		if u.ResetExpires != nil && u.ResetExpires.Before(now) {
			u.ResetTokenHash = nil
			u.ResetExpires = nil
			s.users[id] = u
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll != nil {
		return s.FailAll
	}
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) collect(keep func(model.User) bool) []model.User {
	var out []model.User
	for _, u := range s.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
