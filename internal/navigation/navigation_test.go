package navigation

import (
	"testing"

	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/session"
)

// allowList grants exactly the listed pages.
type allowList map[string]bool

func (a allowList) CanAccess(sess *session.Session, pageID string) bool {
	return sess != nil && a[pageID]
}

func keys(groups []Group) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Key)
	}
	return out
}

func TestFilterDropsEmptyGroups(t *testing.T) {
	sess := &session.Session{Role: auth.RoleNurse}
	groups := Filter(DefaultMenu(), sess, allowList{auth.PagePrescriptions: true, auth.PageMessages: true})

	if got := keys(groups); len(got) != 2 || got[0] != "potilastyo" || got[1] != "viestinta" {
		t.Fatalf("unexpected groups %v", got)
	}
	if len(groups[0].Items) != 1 || groups[0].Items[0].PageID != auth.PagePrescriptions {
		t.Fatalf("unexpected items %+v", groups[0].Items)
	}
}

func TestFilterSupervisorOnlyGroup(t *testing.T) {
	everything := allowList{auth.PageUserManagement: true, auth.PageAuditLogs: true, auth.PageSettings: true}

	nurse := &session.Session{Role: auth.RoleNurse}
	if groups := Filter(DefaultMenu(), nurse, everything); len(groups) != 0 {
		t.Fatalf("admin group must stay hidden from non-supervisors, got %v", keys(groups))
	}

	lead := &session.Session{Role: auth.Supervisor}
	groups := Filter(DefaultMenu(), lead, everything)
	if got := keys(groups); len(got) != 1 || got[0] != "hallinta" {
		t.Fatalf("unexpected groups %v", got)
	}
	if len(groups[0].Items) != 3 {
		t.Fatalf("expected 3 admin items, got %d", len(groups[0].Items))
	}
}

func TestFilterLoggedOut(t *testing.T) {
	if groups := Filter(DefaultMenu(), nil, allowList{auth.PagePatientPortal: true}); groups != nil {
		t.Fatalf("logged out sessions see nothing, got %v", keys(groups))
	}
}
