package auth

// Page identifiers of the screens covered by the legacy permission bundle.
const (
	PagePatientRecords       = "potilastiedot"
	PageForms                = "lomakkeet"
	PagePrescriptions        = "reseptit"
	PageLaboratory           = "laboratorio"
	PageImaging              = "kuvantaminen"
	PageReferrals            = "lahetteet"
	PageAppointments         = "ajanvaraus"
	PageMessages             = "viestit"
	PageAuditLogs            = "lokit"
	PageUserManagement       = "kayttajat"
	PageConfidentialApproval = "luottamuksellinen-hyvaksynta"

	// PagePatientPortal is the only page a patient session may open.
	PagePatientPortal = "patient-portal"
	// PageSettings hosts the page permission editor.
	PageSettings = "asetukset"
)

// LegacyPermissions is the fixed per-page flag bundle used when no page
// permission entry exists for a page.
type LegacyPermissions struct {
	PatientRecords       bool `json:"potilastiedot"`
	Forms                bool `json:"lomakkeet"`
	Prescriptions        bool `json:"reseptit"`
	Laboratory           bool `json:"laboratorio"`
	Imaging              bool `json:"kuvantaminen"`
	Referrals            bool `json:"lahetteet"`
	Appointments         bool `json:"ajanvaraus"`
	Messages             bool `json:"viestit"`
	AuditLogs            bool `json:"lokit"`
	UserManagement       bool `json:"kayttajat"`
	ConfidentialApproval bool `json:"luottamuksellinen-hyvaksynta"`
}

// LegacyPages lists the page ids the bundle has a flag for, in menu order.
var LegacyPages = []string{
	PagePatientRecords,
	PageForms,
	PagePrescriptions,
	PageLaboratory,
	PageImaging,
	PageReferrals,
	PageAppointments,
	PageMessages,
	PageAuditLogs,
	PageUserManagement,
	PageConfidentialApproval,
}

func (p *LegacyPermissions) field(pageID string) *bool {
	switch pageID {
	case PagePatientRecords:
		return &p.PatientRecords
	case PageForms:
		return &p.Forms
	case PagePrescriptions:
		return &p.Prescriptions
	case PageLaboratory:
		return &p.Laboratory
	case PageImaging:
		return &p.Imaging
	case PageReferrals:
		return &p.Referrals
	case PageAppointments:
		return &p.Appointments
	case PageMessages:
		return &p.Messages
	case PageAuditLogs:
		return &p.AuditLogs
	case PageUserManagement:
		return &p.UserManagement
	case PageConfidentialApproval:
		return &p.ConfidentialApproval
	}
	return nil
}

// Lookup returns the flag for pageID; ok is false when the bundle has no
// flag for that page.
func (p LegacyPermissions) Lookup(pageID string) (allowed, ok bool) {
	f := p.field(pageID)
	if f == nil {
		return false, false
	}
	return *f, true
}

// Set changes a single flag. Unknown page ids are ignored.
func (p *LegacyPermissions) Set(pageID string, allowed bool) {
	if f := p.field(pageID); f != nil {
		*f = allowed
	}
}

// DefaultPermissions returns the bundle a role starts with.
func DefaultPermissions(role Role) LegacyPermissions {
	if role == Supervisor {
		var all LegacyPermissions
		for _, page := range LegacyPages {
			all.Set(page, true)
		}
		return all
	}
	p := LegacyPermissions{
		PatientRecords: true,
		Forms:          true,
		Prescriptions:  true,
		Laboratory:     true,
		Imaging:        true,
		Referrals:      true,
		Appointments:   true,
		Messages:       true,
	}
	if role == RoleSpecialist {
		p.ConfidentialApproval = true
	}
	return p
}

// PermissionsFor derives the bundle for an account: the role default with
// the account's own flags applied on top. The supervisor keeps every flag.
func PermissionsFor(a *Account) LegacyPermissions {
	p := DefaultPermissions(a.Role)
	if a.Role == Supervisor {
		return p
	}
	for page, allowed := range a.StaffPermissions {
		p.Set(page, allowed)
	}
	return p
}
