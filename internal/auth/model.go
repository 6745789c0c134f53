package auth

import "time"

type Role string

const (
	RoleLeadPhysician Role = "JYL"
	RolePhysician     Role = "PHYSICIAN"
	RoleSpecialist    Role = "SPECIALIST"
	RoleNurse         Role = "NURSE"
	RoleParamedic     Role = "PARAMEDIC"
	RolePatient       Role = "PATIENT"
	RoleCustom        Role = "CUSTOM"

	// RoleAll only has meaning inside a page permission entry.
	RoleAll Role = "all"
)

// Supervisor is the role that bypasses every permission check.
const Supervisor = RoleLeadPhysician

func (r Role) Valid() bool {
	switch r {
	case RoleLeadPhysician, RolePhysician, RoleSpecialist, RoleNurse,
		RoleParamedic, RolePatient, RoleCustom:
		return true
	}
	return false
}

type Kind string

const (
	KindStaff   Kind = "staff"
	KindPatient Kind = "patient"
)

// PatientPermissions are the patient-portal capability flags.
type PatientPermissions struct {
	ViewRecords       bool `json:"viewRecords" yaml:"view_records"`
	ViewPrescriptions bool `json:"viewPrescriptions" yaml:"view_prescriptions"`
	ViewLabResults    bool `json:"viewLabResults" yaml:"view_lab_results"`
	BookAppointments  bool `json:"bookAppointments" yaml:"book_appointments"`
	SendMessages      bool `json:"sendMessages" yaml:"send_messages"`
}

func DefaultPatientPermissions() PatientPermissions {
	return PatientPermissions{
		ViewRecords:       true,
		ViewPrescriptions: true,
		ViewLabResults:    true,
		BookAppointments:  true,
		SendMessages:      true,
	}
}

type Account struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	JobTitle     string     `json:"jobTitle,omitempty"`
	PatientID    string     `json:"patientId,omitempty"`
	SupervisorID string     `json:"supervisorId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Active       bool       `json:"active"`
	// StaffPermissions holds per-account legacy flag overrides keyed by page id.
	StaffPermissions   map[string]bool    `json:"staffPermissions,omitempty"`
	PatientPermissions PatientPermissions `json:"patientPermissions"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// Expired reports whether the account's expiry lies at or before now.
func (a *Account) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Reason is the internal outcome of a credential lookup. The public login
// entry points collapse every non-OK reason into a plain failure.
type Reason string

const (
	ReasonOK             Reason = "ok"
	ReasonBadCredentials Reason = "bad_credentials"
	ReasonInactive       Reason = "inactive"
	ReasonExpired        Reason = "expired"
)
