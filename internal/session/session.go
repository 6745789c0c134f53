package session

import (
	"time"

	"hoitoportaali/internal/auth"
)

// Session is the authenticated identity a permission check runs against.
// Callers pass it explicitly; nothing in the portal looks it up globally.
type Session struct {
	UserID             string                  `json:"id"`
	Username           string                  `json:"username"`
	Name               string                  `json:"name"`
	Role               auth.Role               `json:"role"`
	JobTitle           string                  `json:"jobTitle,omitempty"`
	IsPatient          bool                    `json:"isPatient"`
	PatientID          string                  `json:"patientId,omitempty"`
	SupervisorID       string                  `json:"supervisorId,omitempty"`
	OnDuty             bool                    `json:"isOnDuty"`
	ShiftStart         *time.Time              `json:"shiftStart,omitempty"`
	ExpiresAt          *time.Time              `json:"expiresAt,omitempty"`
	Permissions        auth.LegacyPermissions  `json:"permissions"`
	PatientPermissions auth.PatientPermissions `json:"patientPermissions"`
}

func (s *Session) Kind() auth.Kind {
	if s.IsPatient {
		return auth.KindPatient
	}
	return auth.KindStaff
}

type State string

const (
	LoggedOut      State = "logged_out"
	StaffSession   State = "staff"
	PatientSession State = "patient"
)

// StateOf maps a possibly nil session to its lifecycle state.
func StateOf(s *Session) State {
	switch {
	case s == nil:
		return LoggedOut
	case s.IsPatient:
		return PatientSession
	default:
		return StaffSession
	}
}

// FromAccount derives a session directly from an account, resolving the
// legacy permission bundle the same way a login does. It carries no expiry.
func FromAccount(acc *auth.Account) *Session {
	sess := &Session{
		UserID:       acc.ID,
		Username:     acc.Username,
		Name:         acc.Name,
		Role:         acc.Role,
		JobTitle:     acc.JobTitle,
		SupervisorID: acc.SupervisorID,
	}
	if acc.Kind == auth.KindPatient {
		sess.Role = auth.RolePatient
		sess.IsPatient = true
		sess.PatientID = acc.PatientID
		sess.PatientPermissions = acc.PatientPermissions
		return sess
	}
	sess.Permissions = auth.PermissionsFor(acc)
	return sess
}
