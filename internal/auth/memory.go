package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps accounts in process memory. It backs the offline
// check-access command.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[Kind]map[string]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[Kind]map[string]*Account{
		KindStaff:   {},
		KindPatient: {},
	}}
}

func (m *MemoryStore) GetByUsername(ctx context.Context, kind Kind, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[kind][username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) Create(ctx context.Context, a *Account, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.accounts[a.Kind]
	if !ok {
		return fmt.Errorf("unknown account kind %q", a.Kind)
	}
	if _, exists := byName[a.Username]; exists {
		return fmt.Errorf("account %q already exists", a.Username)
	}
	cp := *a
	byName[a.Username] = &cp
	return nil
}
