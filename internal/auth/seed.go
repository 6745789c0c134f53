package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AccountWriter is satisfied by both Store and MemoryStore.
type AccountWriter interface {
	Accounts
	Create(ctx context.Context, a *Account, password string) error
}

type accountsFile struct {
	Accounts []struct {
		Username           string              `yaml:"username"`
		Password           string              `yaml:"password"`
		Name               string              `yaml:"name"`
		Kind               Kind                `yaml:"kind"`
		Role               Role                `yaml:"role"`
		JobTitle           string              `yaml:"job_title"`
		PatientID          string              `yaml:"patient_id"`
		SupervisorID       string              `yaml:"supervisor_id"`
		ExpiresAt          *time.Time          `yaml:"expires_at"`
		Inactive           bool                `yaml:"inactive"`
		StaffPermissions   map[string]bool     `yaml:"staff_permissions"`
		PatientPermissions *PatientPermissions `yaml:"patient_permissions"`
	} `yaml:"accounts"`
}

// SeedFromFile creates the predefined accounts listed in a YAML file.
// Accounts that already exist are left untouched.
func SeedFromFile(ctx context.Context, dst AccountWriter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var af accountsFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	created := 0
	for _, u := range af.Accounts {
		if u.Username == "" || u.Password == "" {
			continue
		}
		kind := u.Kind
		if kind == "" {
			kind = KindStaff
		}
		role := u.Role
		if kind == KindPatient {
			role = RolePatient
		}
		if !role.Valid() {
			return created, fmt.Errorf("account %q: unknown role %q", u.Username, u.Role)
		}
		if _, err := dst.GetByUsername(ctx, kind, u.Username); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return created, err
		}
		a := &Account{
			Kind:             kind,
			Username:         u.Username,
			Name:             u.Name,
			Role:             role,
			JobTitle:         u.JobTitle,
			PatientID:        u.PatientID,
			SupervisorID:     u.SupervisorID,
			ExpiresAt:        u.ExpiresAt,
			Active:           !u.Inactive,
			StaffPermissions: u.StaffPermissions,
		}
		if kind == KindPatient {
			a.PatientPermissions = DefaultPatientPermissions()
			if u.PatientPermissions != nil {
				a.PatientPermissions = *u.PatientPermissions
			}
		}
		if err := dst.Create(ctx, a, u.Password); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
