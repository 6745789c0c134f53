package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoitoportaali/internal/access"
	"hoitoportaali/internal/audit"
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/session"
)

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(ctx context.Context, e *audit.Entry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, flt audit.Filter) ([]audit.Entry, error) {
	return f.entries, nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeAudit) {
	t.Helper()
	ctx := context.Background()
	accounts := auth.NewMemoryStore()
	for _, a := range []*auth.Account{
		{Kind: auth.KindStaff, Username: "jyl", Role: auth.Supervisor, Active: true},
		{Kind: auth.KindStaff, Username: "laakari", Role: auth.RolePhysician, JobTitle: "Cardiologist", Active: true},
		{Kind: auth.KindPatient, Username: "potilas", Role: auth.RolePatient, PatientID: "P-1", Active: true},
	} {
		require.NoError(t, accounts.Create(ctx, a, "oikea"))
	}

	rec := &fakeAudit{}
	logger := zerolog.Nop()
	sessions := session.NewManager(auth.NewAuthenticator(accounts), session.NewMemoryStore(), logger).WithRecorder(rec)
	registry := access.NewRegistry(access.NewMemoryTableStore(nil))
	require.NoError(t, registry.Reload(ctx))

	return NewRouter(Deps{
		Logger:      logger,
		Sessions:    sessions,
		Tokens:      session.NewTokens("testisalaisuus"),
		Resolver:    access.NewResolver(registry, access.PolicyDeny),
		Registry:    registry,
		Audit:       rec,
		Recorder:    rec,
		Diagnostics: true,
	}), rec
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, h http.Handler, path, token, username string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, path, token, `{"username":"`+username+`","password":"oikea"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoginFailureIsCollapsed(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/v1/auth/login", "", `{"username":"ghost","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "invalid credentials", body["error"])
	assert.NotContains(t, body, "reason")

	rr = do(t, h, http.MethodPost, "/api/v1/auth/login?diagnostic=1", "", `{"username":"ghost","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "bad_credentials", decodeBody(t, rr)["reason"])

	rr = do(t, h, http.MethodPost, "/api/v1/auth/login", "", `{"username":"laakari"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionAndAccessChecks(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/api/v1/session", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := login(t, h, "/api/v1/auth/login", "", "laakari")

	rr = do(t, h, http.MethodGet, "/api/v1/session", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "PHYSICIAN", body["role"])
	assert.Equal(t, false, body["isPatient"])

	rr = do(t, h, http.MethodGet, "/api/v1/access/reseptit", token, "")
	assert.Equal(t, true, decodeBody(t, rr)["allowed"])
	rr = do(t, h, http.MethodGet, "/api/v1/access/kayttajat", token, "")
	assert.Equal(t, false, decodeBody(t, rr)["allowed"])

	rr = do(t, h, http.MethodGet, "/api/v1/access/reseptit", "", "")
	assert.Equal(t, false, decodeBody(t, rr)["allowed"], "logged out clients are denied")
}

func TestPagePermissionAdministration(t *testing.T) {
	h, rec := newTestRouter(t)
	doctor := login(t, h, "/api/v1/auth/login", "", "laakari")
	lead := login(t, h, "/api/v1/auth/login", "", "jyl")

	rr := do(t, h, http.MethodPut, "/api/v1/page-permissions/kuvantaminen", doctor, `{"roles":[],"jobTitles":["Cardiologist"]}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/v1/page-permissions/kuvantaminen", lead, `{"roles":[],"jobTitles":["Cardiologist"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = do(t, h, http.MethodGet, "/api/v1/access/kuvantaminen", doctor, "")
	assert.Equal(t, true, decodeBody(t, rr)["allowed"])

	rr = do(t, h, http.MethodPut, "/api/v1/page-permissions/kuvantaminen", lead, `{"roles":[],"jobTitles":["Radiologist"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodGet, "/api/v1/access/kuvantaminen", doctor, "")
	assert.Equal(t, false, decodeBody(t, rr)["allowed"])

	rr = do(t, h, http.MethodPut, "/api/v1/page-permissions/kuvantaminen", lead, `{"roles":[""]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/page-permissions/", lead, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []access.PageEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"Radiologist"}, entries[0].JobTitles)

	rr = do(t, h, http.MethodDelete, "/api/v1/page-permissions/kuvantaminen", lead, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, h, http.MethodDelete, "/api/v1/page-permissions/kuvantaminen", lead, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var actions []audit.Action
	for _, e := range rec.entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, audit.ActionPagePermissionSet)
	assert.Contains(t, actions, audit.ActionPagePermissionDrop)
}

func TestPatientLoginReplacesStaffSession(t *testing.T) {
	h, _ := newTestRouter(t)
	token := login(t, h, "/api/v1/auth/login", "", "laakari")
	token = login(t, h, "/api/v1/auth/patient-login", token, "potilas")

	rr := do(t, h, http.MethodGet, "/api/v1/session", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["isPatient"])

	rr = do(t, h, http.MethodGet, "/api/v1/navigation", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var groups []struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "potilas", groups[0].Key)

	rr = do(t, h, http.MethodPatch, "/api/v1/session/shift", token, `{"onDuty":true}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestShiftAndLogout(t *testing.T) {
	h, _ := newTestRouter(t)
	token := login(t, h, "/api/v1/auth/login", "", "laakari")

	rr := do(t, h, http.MethodPatch, "/api/v1/session/shift", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPatch, "/api/v1/session/shift", token, `{"onDuty":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["isOnDuty"])

	rr = do(t, h, http.MethodPost, "/api/v1/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/session", token, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuditRequiresLogPage(t *testing.T) {
	h, _ := newTestRouter(t)
	doctor := login(t, h, "/api/v1/auth/login", "", "laakari")
	lead := login(t, h, "/api/v1/auth/login", "", "jyl")

	rr := do(t, h, http.MethodGet, "/api/v1/audit", doctor, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/audit?actor=jyl", lead, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	assert.NotEmpty(t, entries)
}
