package auth

import (
	"context"
	"sync"
	"time"

	"alltech-shop/internal/models"
)

// MemorySessions is an in-process SessionStore for tests and
// credential-less local runs. TTLs are recorded but not enforced.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]Session)}
}

func (m *MemorySessions) Save(ctx context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessions) Get(ctx context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessions) Mutate(ctx context.Context, id string, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	fn(&s)
	s.ID = id
	m.sessions[id] = s
	return nil
}

// StaticVerifier maps ID tokens to user IDs directly.
type StaticVerifier struct {
	Tokens map[string]string
}

func (v *StaticVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	uid, ok := v.Tokens[idToken]
	if !ok {
		return "", ErrInvalidToken
	}
	return uid, nil
}

// MemoryProfiles is an in-process ProfileStore.
type MemoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
	touched  map[string]int
}

func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{
		profiles: make(map[string]models.UserProfile),
		touched:  make(map[string]int),
	}
}

func (m *MemoryProfiles) Put(uid string, p models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[uid] = p
}

func (m *MemoryProfiles) Profile(ctx context.Context, uid string) (models.UserProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[uid]
	return p, ok, nil
}

func (m *MemoryProfiles) TouchLastLogin(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[uid]++
	if p, ok := m.profiles[uid]; ok {
		p.LastLogin = time.Now()
		m.profiles[uid] = p
	}
	return nil
}

// Touched reports how many times the uid's last login was stamped.
func (m *MemoryProfiles) Touched(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touched[uid]
}
