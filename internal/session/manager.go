package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hoitoportaali/internal/audit"
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/metrics"
)

const DefaultTTL = 12 * time.Hour

var ErrNoSession = errors.New("no active staff session")

// Manager drives the LoggedOut / StaffSession / PatientSession lifecycle
// for each client.
type Manager struct {
	authn     *auth.Authenticator
	snapshots SnapshotStore
	recorder  audit.Recorder
	logger    zerolog.Logger
	ttl       time.Duration
	now       func() time.Time
}

func NewManager(authn *auth.Authenticator, snapshots SnapshotStore, logger zerolog.Logger) *Manager {
	return &Manager{
		authn:     authn,
		snapshots: snapshots,
		recorder:  audit.Nop{},
		logger:    logger.With().Str("component", "session").Logger(),
		ttl:       DefaultTTL,
		now:       time.Now,
	}
}

func (m *Manager) WithTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

func (m *Manager) WithRecorder(r audit.Recorder) *Manager {
	m.recorder = r
	return m
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Login authenticates a staff or predefined account. On success any patient
// snapshot of the client is cleared. A failed login leaves stored state as
// it was and gives no detail.
func (m *Manager) Login(ctx context.Context, clientID, username, password string) (bool, error) {
	reason, err := m.login(ctx, clientID, auth.KindStaff, username, password)
	return reason == auth.ReasonOK, err
}

// LoginAsPatient authenticates a patient account. On success any staff
// snapshot of the client is cleared.
func (m *Manager) LoginAsPatient(ctx context.Context, clientID, username, password string) (bool, error) {
	reason, err := m.login(ctx, clientID, auth.KindPatient, username, password)
	return reason == auth.ReasonOK, err
}

// LoginDiagnostic behaves like Login but exposes the internal reason.
func (m *Manager) LoginDiagnostic(ctx context.Context, clientID, username, password string) (auth.Reason, error) {
	return m.login(ctx, clientID, auth.KindStaff, username, password)
}

// LoginAsPatientDiagnostic behaves like LoginAsPatient but exposes the
// internal reason.
func (m *Manager) LoginAsPatientDiagnostic(ctx context.Context, clientID, username, password string) (auth.Reason, error) {
	return m.login(ctx, clientID, auth.KindPatient, username, password)
}

func (m *Manager) login(ctx context.Context, clientID string, kind auth.Kind, username, password string) (auth.Reason, error) {
	acc, reason, err := m.authn.Lookup(ctx, kind, username, password)
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}
	metrics.LoginAttempt(string(kind), string(reason))

	action := audit.ActionLogin
	other := auth.KindPatient
	if kind == auth.KindPatient {
		action = audit.ActionPatientLogin
		other = auth.KindStaff
	}

	if reason != auth.ReasonOK {
		m.logger.Info().Str("username", username).Str("kind", string(kind)).Str("reason", string(reason)).Msg("login rejected")
		m.record(ctx, &audit.Entry{Actor: username, Action: action, Outcome: audit.OutcomeFailure, Reason: string(reason)})
		return reason, nil
	}

	snap := m.snapshotFor(acc)
	if err := m.snapshots.Delete(ctx, clientID, other); err != nil {
		return "", fmt.Errorf("clear %s snapshot: %w", other, err)
	}
	if err := m.snapshots.Save(ctx, clientID, kind, snap); err != nil {
		return "", fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	m.logger.Info().Str("username", username).Str("kind", string(kind)).Str("role", string(acc.Role)).Msg("login")
	m.record(ctx, &audit.Entry{Actor: username, Action: action, Outcome: audit.OutcomeSuccess, Reason: string(reason)})
	return reason, nil
}

func (m *Manager) snapshotFor(acc *auth.Account) *Snapshot {
	now := m.now().UTC()
	expires := now.Add(m.ttl)
	if acc.ExpiresAt != nil && acc.ExpiresAt.Before(expires) {
		expires = *acc.ExpiresAt
	}
	snap := &Snapshot{
		ID:           acc.ID,
		Username:     acc.Username,
		Role:         string(acc.Role),
		Name:         acc.Name,
		ExpiresAt:    &expires,
		JobTitle:     acc.JobTitle,
		SupervisorID: acc.SupervisorID,
	}
	if acc.Kind == auth.KindPatient {
		cp := *acc
		cp.PasswordHash = ""
		snap.Role = snapshotRolePatient
		snap.PatientID = acc.PatientID
		snap.Account = &cp
		return snap
	}
	snap.Permissions = auth.PermissionsFor(acc)
	return snap
}

// Restore reads the client's persisted snapshot. An expired snapshot is
// deleted and reported as no session; a nil session with a nil error means
// LoggedOut.
func (m *Manager) Restore(ctx context.Context, clientID string) (*Session, error) {
	for _, kind := range []auth.Kind{auth.KindStaff, auth.KindPatient} {
		snap, err := m.load(ctx, clientID, kind)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			return snap.session(), nil
		}
	}
	return nil, nil
}

// load returns nil when the slot is empty or held an expired snapshot.
func (m *Manager) load(ctx context.Context, clientID string, kind auth.Kind) (*Snapshot, error) {
	snap, err := m.snapshots.Load(ctx, clientID, kind)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s snapshot: %w", kind, err)
	}
	if snap.Expired(m.now()) {
		if err := m.snapshots.Delete(ctx, clientID, kind); err != nil {
			return nil, fmt.Errorf("discard expired %s snapshot: %w", kind, err)
		}
		m.logger.Debug().Str("username", snap.Username).Str("kind", string(kind)).Msg("session expired")
		return nil, nil
	}
	return snap, nil
}

func (m *Manager) State(ctx context.Context, clientID string) (State, error) {
	sess, err := m.Restore(ctx, clientID)
	if err != nil {
		return "", err
	}
	return StateOf(sess), nil
}

// Logout clears both snapshot slots of the client.
func (m *Manager) Logout(ctx context.Context, clientID string) error {
	sess, err := m.Restore(ctx, clientID)
	if err != nil {
		return err
	}
	for _, kind := range []auth.Kind{auth.KindStaff, auth.KindPatient} {
		if err := m.snapshots.Delete(ctx, clientID, kind); err != nil {
			return fmt.Errorf("clear %s snapshot: %w", kind, err)
		}
	}
	if sess != nil {
		m.record(ctx, &audit.Entry{Actor: sess.Username, Action: audit.ActionLogout, Outcome: audit.OutcomeSuccess})
	}
	return nil
}

// UpdateShiftStatus toggles the on-duty flag of a staff session. Going on
// duty stamps the shift start; going off duty clears it.
func (m *Manager) UpdateShiftStatus(ctx context.Context, clientID string, onDuty bool) (*Session, error) {
	snap, err := m.load(ctx, clientID, auth.KindStaff)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoSession
	}
	snap.IsOnDuty = onDuty
	if onDuty {
		start := m.now().UTC()
		snap.ShiftStart = &start
	} else {
		snap.ShiftStart = nil
	}
	if err := m.snapshots.Save(ctx, clientID, auth.KindStaff, snap); err != nil {
		return nil, fmt.Errorf("save staff snapshot: %w", err)
	}
	m.record(ctx, &audit.Entry{
		Actor:   snap.Username,
		Action:  audit.ActionShiftChange,
		Outcome: audit.OutcomeSuccess,
		Fields:  map[string]interface{}{"onDuty": onDuty},
	})
	return snap.session(), nil
}

func (m *Manager) record(ctx context.Context, e *audit.Entry) {
	if err := m.recorder.Record(ctx, e); err != nil {
		m.logger.Error().Err(err).Str("action", string(e.Action)).Msg("record audit entry")
	}
}
