package access

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/session"
)

func staffSession(role auth.Role, jobTitle string) *session.Session {
	return session.FromAccount(&auth.Account{ID: "x", Kind: auth.KindStaff, Username: "x", Role: role, JobTitle: jobTitle})
}

func allPages() []string {
	pages := append([]string{}, auth.LegacyPages...)
	return append(pages, auth.PagePatientPortal, auth.PageSettings, "ei-ole-olemassa")
}

func TestSupervisorBypassesTable(t *testing.T) {
	deny := Table{}
	for _, p := range allPages() {
		deny[p] = PageEntry{PageID: p, Roles: []string{"NOBODY"}, JobTitles: []string{"Nobody"}}
	}
	r := NewResolver(deny, PolicyDeny)
	sess := staffSession(auth.Supervisor, "")
	for _, p := range allPages() {
		d := r.Decide(sess, p)
		assert.True(t, d.Allowed, p)
		assert.Equal(t, RuleSupervisor, d.Rule)
	}
}

func TestPatientIsolation(t *testing.T) {
	open := Table{}
	for _, p := range allPages() {
		open[p] = PageEntry{PageID: p, Roles: []string{string(auth.RoleAll)}}
	}
	r := NewResolver(open, PolicyAllow)
	sess := session.FromAccount(&auth.Account{ID: "p", Kind: auth.KindPatient, Username: "p", PatientID: "P-1"})

	for _, p := range allPages() {
		if p == auth.PagePatientPortal {
			assert.True(t, r.CanAccess(sess, p))
			continue
		}
		assert.False(t, r.CanAccess(sess, p), p)
	}
}

func TestNoSessionDenied(t *testing.T) {
	r := NewResolver(nil, PolicyAllow)
	d := r.Decide(nil, auth.PagePatientPortal)
	assert.False(t, d.Allowed)
	assert.Equal(t, RuleNoSession, d.Rule)
}

func TestPageEntryMerge(t *testing.T) {
	tests := []struct {
		name     string
		entry    PageEntry
		role     auth.Role
		jobTitle string
		want     bool
	}{
		{"job title alone suffices", PageEntry{Roles: []string{"PHYSICIAN"}, JobTitles: []string{"Chief Nurse"}}, auth.RoleNurse, "Chief Nurse", true},
		{"role alone suffices", PageEntry{Roles: []string{"PHYSICIAN"}, JobTitles: []string{"Chief Nurse"}}, auth.RolePhysician, "Cardiologist", true},
		{"neither matches", PageEntry{Roles: []string{"PHYSICIAN"}, JobTitles: []string{"Chief Nurse"}}, auth.RoleNurse, "Ward Nurse", false},
		{"empty title never matches a title list", PageEntry{Roles: []string{"PHYSICIAN"}, JobTitles: []string{"Chief Nurse"}}, auth.RoleNurse, "", false},
		{"titles only", PageEntry{JobTitles: []string{"Radiologist"}}, auth.RolePhysician, "Radiologist", true},
		{"titles only mismatch", PageEntry{JobTitles: []string{"Radiologist"}}, auth.RolePhysician, "Cardiologist", false},
		{"roles only", PageEntry{Roles: []string{"NURSE"}}, auth.RoleNurse, "", true},
		{"roles only mismatch", PageEntry{Roles: []string{"NURSE"}}, auth.RoleParamedic, "", false},
		{"wildcard role", PageEntry{Roles: []string{"all"}}, auth.RoleParamedic, "", true},
		{"empty entry denies", PageEntry{}, auth.RolePhysician, "Cardiologist", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.PageID = auth.PageLaboratory
			r := NewResolver(Table{auth.PageLaboratory: tt.entry}, PolicyDeny)
			d := r.Decide(staffSession(tt.role, tt.jobTitle), auth.PageLaboratory)
			assert.Equal(t, tt.want, d.Allowed)
			assert.Equal(t, RulePageEntry, d.Rule)
		})
	}
}

func TestLegacyFallbackDefaults(t *testing.T) {
	r := NewResolver(Table{}, PolicyAllow)
	for _, role := range []auth.Role{auth.RolePhysician, auth.RoleSpecialist, auth.RoleNurse, auth.RoleParamedic, auth.RoleCustom} {
		sess := staffSession(role, "")
		d := r.Decide(sess, auth.PagePrescriptions)
		assert.True(t, d.Allowed, role)
		assert.Equal(t, RuleLegacy, d.Rule)
		d = r.Decide(sess, auth.PageUserManagement)
		assert.False(t, d.Allowed, role)
		assert.Equal(t, RuleLegacy, d.Rule)
	}
}

func TestEntryTakesPrecedenceOverLegacy(t *testing.T) {
	r := NewResolver(Table{auth.PagePrescriptions: {PageID: auth.PagePrescriptions, Roles: []string{"PHYSICIAN"}}}, PolicyDeny)
	assert.False(t, r.CanAccess(staffSession(auth.RoleNurse, ""), auth.PagePrescriptions))
	assert.True(t, r.CanAccess(staffSession(auth.RolePhysician, ""), auth.PagePrescriptions))
}

func TestUnknownPagePolicy(t *testing.T) {
	sess := staffSession(auth.RoleNurse, "")

	d := NewResolver(nil, "").Decide(sess, "ei-ole-olemassa")
	assert.False(t, d.Allowed, "unknown pages fail closed by default")
	assert.Equal(t, RuleUnknownPage, d.Rule)

	d = NewResolver(nil, PolicyAllow).Decide(sess, "ei-ole-olemassa")
	assert.True(t, d.Allowed)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDeny, p)
	p, err = ParsePolicy("allow")
	require.NoError(t, err)
	assert.Equal(t, PolicyAllow, p)
	_, err = ParsePolicy("maybe")
	assert.Error(t, err)
}

func TestJobTitleChangeFlipsAccess(t *testing.T) {
	ctx := context.Background()
	accounts := auth.NewMemoryStore()
	require.NoError(t, accounts.Create(ctx, &auth.Account{
		Kind: auth.KindStaff, Username: "laakari", Role: auth.RolePhysician, JobTitle: "Cardiologist", Active: true,
	}, "oikea"))
	sessions := session.NewManager(auth.NewAuthenticator(accounts), session.NewMemoryStore(), zerolog.Nop()).WithTTL(time.Hour)

	ok, err := sessions.Login(ctx, "c1", "laakari", "oikea")
	require.NoError(t, err)
	require.True(t, ok)
	sess, err := sessions.Restore(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, sess)

	registry := NewRegistry(NewMemoryTableStore(nil))
	require.NoError(t, registry.Reload(ctx))
	resolver := NewResolver(registry, PolicyDeny)

	_, err = registry.Put(ctx, PageEntry{PageID: auth.PageImaging, Roles: []string{}, JobTitles: []string{"Cardiologist"}})
	require.NoError(t, err)
	assert.True(t, resolver.CanAccess(sess, auth.PageImaging))

	_, err = registry.Put(ctx, PageEntry{PageID: auth.PageImaging, Roles: []string{}, JobTitles: []string{"Radiologist"}})
	require.NoError(t, err)
	assert.False(t, resolver.CanAccess(sess, auth.PageImaging))
}
