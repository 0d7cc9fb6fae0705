package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

var _ AuthRepo = (*MemoryAuthRepo)(nil)

// MemoryAuthRepo keeps users in process memory. Uniqueness is enforced under
// a single lock, matching the guarantees of the users table constraints.
type MemoryAuthRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]types.UserAuth
	byEmail map[string]uuid.UUID
	byName  map[string]uuid.UUID
}

func NewMemoryAuthRepo() *MemoryAuthRepo {
	return &MemoryAuthRepo{
		byID:    make(map[uuid.UUID]types.UserAuth),
		byEmail: make(map[string]uuid.UUID),
		byName:  make(map[string]uuid.UUID),
	}
}

func (s *MemoryAuthRepo) InsertUser(_ context.Context, username, email, hashedPassword string) (uuid.UUID, error) {
	if err := requireFields("username", username, "email", email, "password", hashedPassword); err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[username]; ok {
		return uuid.Nil, &types.ConflictError{Field: "username"}
	}
	if _, ok := s.byEmail[email]; ok {
		return uuid.Nil, &types.ConflictError{Field: "email"}
	}

	u := types.UserAuth{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		CreatedAt: time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	s.byName[username] = u.ID
	return u.ID, nil
}

func (s *MemoryAuthRepo) GetUserByEmail(_ context.Context, email string) (*types.UserAuth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, types.ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *MemoryAuthRepo) GetUserByID(_ context.Context, id uuid.UUID) (*types.UserAuth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	u = u.Public()
	return &u, nil
}

// Len reports the number of stored users.
func (s *MemoryAuthRepo) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
