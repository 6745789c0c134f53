package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Accounts is the read side of the account store used by Lookup.
type Accounts interface {
	GetByUsername(ctx context.Context, kind Kind, username string) (*Account, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var ErrUserNotFound = errors.New("user not found")

const accountColumns = `id, kind, username, name, password_hash, role, job_title, patient_id,
	supervisor_id, expires_at, active, staff_permissions, patient_permissions, created_at`

func (s *Store) GetByUsername(ctx context.Context, kind Kind, username string) (*Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE kind = $1 AND username = $2`
	row := s.db.QueryRowContext(ctx, q, string(kind), username)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return a, nil
}

// Create hashes password and inserts the account. ID and CreatedAt are
// assigned when empty.
func (s *Store) Create(ctx context.Context, a *Account, password string) error {
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
	staffJSON, err := json.Marshal(a.StaffPermissions)
	if err != nil {
		return err
	}
	patientJSON, err := json.Marshal(a.PatientPermissions)
	if err != nil {
		return err
	}
	var expires sql.NullTime
	if a.ExpiresAt != nil {
		expires = sql.NullTime{Time: *a.ExpiresAt, Valid: true}
	}
	const q = `
		INSERT INTO accounts (id, kind, username, name, password_hash, role, job_title, patient_id,
			supervisor_id, expires_at, active, staff_permissions, patient_permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := s.db.ExecContext(ctx, q,
		a.ID,
		string(a.Kind),
		a.Username,
		a.Name,
		a.PasswordHash,
		string(a.Role),
		a.JobTitle,
		a.PatientID,
		a.SupervisorID,
		expires,
		a.Active,
		string(staffJSON),
		string(patientJSON),
		a.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	a := &Account{}
	var (
		kind, role  string
		expires     sql.NullTime
		staffJSON   []byte
		patientJSON []byte
	)
	if err := row.Scan(&a.ID, &kind, &a.Username, &a.Name, &a.PasswordHash, &role, &a.JobTitle,
		&a.PatientID, &a.SupervisorID, &expires, &a.Active, &staffJSON, &patientJSON, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	a.Role = Role(role)
	if expires.Valid {
		t := expires.Time
		a.ExpiresAt = &t
	}
	if len(staffJSON) > 0 {
		if err := json.Unmarshal(staffJSON, &a.StaffPermissions); err != nil {
			return nil, fmt.Errorf("decode staff permissions: %w", err)
		}
	}
	if len(patientJSON) > 0 {
		if err := json.Unmarshal(patientJSON, &a.PatientPermissions); err != nil {
			return nil, fmt.Errorf("decode patient permissions: %w", err)
		}
	}
	return a, nil
}
