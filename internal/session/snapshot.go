package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"hoitoportaali/internal/auth"
)

// snapshotRolePatient is the role string stored in patient snapshots.
const snapshotRolePatient = "patient"

// Snapshot is the persisted form of a session. Patient snapshots also carry
// the matched account.
type Snapshot struct {
	ID           string                 `json:"id"`
	Username     string                 `json:"username"`
	Role         string                 `json:"role"`
	Name         string                 `json:"name"`
	IsOnDuty     bool                   `json:"isOnDuty"`
	ShiftStart   *time.Time             `json:"shiftStart,omitempty"`
	ExpiresAt    *time.Time             `json:"expiresAt,omitempty"`
	JobTitle     string                 `json:"jobTitle,omitempty"`
	SupervisorID string                 `json:"supervisorId,omitempty"`
	Permissions  auth.LegacyPermissions `json:"permissions"`
	PatientID    string                 `json:"patientId,omitempty"`
	Account      *auth.Account          `json:"account,omitempty"`
}

// Expired reports whether the snapshot's expiry lies at or before now.
func (s *Snapshot) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

func (s *Snapshot) session() *Session {
	sess := &Session{
		UserID:       s.ID,
		Username:     s.Username,
		Name:         s.Name,
		Role:         auth.Role(s.Role),
		JobTitle:     s.JobTitle,
		SupervisorID: s.SupervisorID,
		OnDuty:       s.IsOnDuty,
		ShiftStart:   s.ShiftStart,
		ExpiresAt:    s.ExpiresAt,
		Permissions:  s.Permissions,
	}
	if s.Role == snapshotRolePatient {
		sess.Role = auth.RolePatient
		sess.IsPatient = true
		sess.PatientID = s.PatientID
		if s.Account != nil {
			sess.PatientPermissions = s.Account.PatientPermissions
		}
	}
	return sess
}

var ErrNoSnapshot = errors.New("no session snapshot")

// SnapshotStore persists one snapshot per client and kind. Save never
// touches the other kind's slot; clearing it is the caller's job.
type SnapshotStore interface {
	Save(ctx context.Context, clientID string, kind auth.Kind, snap *Snapshot) error
	Load(ctx context.Context, clientID string, kind auth.Kind) (*Snapshot, error)
	Delete(ctx context.Context, clientID string, kind auth.Kind) error
}

type slotKey struct {
	clientID string
	kind     auth.Kind
}

// MemoryStore keeps snapshots in process. Each Save sweeps slots whose
// snapshot has expired, so clients that never return do not pile up.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[slotKey]Snapshot
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[slotKey]Snapshot), now: time.Now}
}

func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Save(ctx context.Context, clientID string, kind auth.Kind, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, held := range m.slots {
		if held.Expired(now) {
			delete(m.slots, key)
		}
	}
	m.slots[slotKey{clientID, kind}] = *snap
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, clientID string, kind auth.Kind) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.slots[slotKey{clientID, kind}]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return &snap, nil
}

func (m *MemoryStore) Delete(ctx context.Context, clientID string, kind auth.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slotKey{clientID, kind})
	return nil
}
