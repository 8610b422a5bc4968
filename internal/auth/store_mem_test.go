package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*models.User
	tokens map[string]*models.PasswordResetToken
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uuid.UUID]*models.User),
		tokens: make(map[string]*models.PasswordResetToken),
	}
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (m *memStore) RegisterUser(_ context.Context, u *models.User, prepare func(u *models.User, existing int)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.Conflict("user already exists")
		}
	}
	prepare(u, len(m.users))
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return apperr.NotFound("user")
	}
	for id, other := range m.users {
		if id != u.ID && other.Email == u.Email {
			return apperr.Conflict("user already exists")
		}
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) CreateResetToken(_ context.Context, t *models.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	cp := *t
	m.tokens[t.Token] = &cp
	return nil
}

func (m *memStore) GetResetToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, apperr.NotFound("reset token")
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ConsumeResetToken(_ context.Context, tokenID, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID != tokenID {
			continue
		}
		if t.Used {
			return apperr.Validation("invalid or expired reset token")
		}
		u, ok := m.users[userID]
		if !ok {
			return apperr.NotFound("user")
		}
		t.Used = true
		u.Password = passwordHash
		return nil
	}
	return apperr.Validation("invalid or expired reset token")
}

func (m *memStore) setActive(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsActive = active
}

// plainHasher avoids bcrypt cost in tests.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Verify(p, digest string) bool { return digest == "hashed:"+p }

type captureSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *captureSink) Send(_ context.Context, ev notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}
