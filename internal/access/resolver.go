package access

import (
	"fmt"

	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/metrics"
	"hoitoportaali/internal/session"
)

// Policy decides pages that have neither an entry nor a legacy flag.
type Policy string

const (
	PolicyDeny  Policy = "deny"
	PolicyAllow Policy = "allow"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDeny:
		return PolicyDeny, nil
	case PolicyAllow:
		return PolicyAllow, nil
	}
	return "", fmt.Errorf("unknown page policy %q", s)
}

// Rule names the step of the resolution chain that produced a decision.
type Rule string

const (
	RuleNoSession     Rule = "no_session"
	RulePatientPortal Rule = "patient_portal"
	RulePatientDenied Rule = "patient_denied"
	RuleSupervisor    Rule = "supervisor"
	RulePageEntry     Rule = "page_entry"
	RuleLegacy        Rule = "legacy"
	RuleUnknownPage   Rule = "unknown_page"
)

type Decision struct {
	Allowed bool `json:"allowed"`
	Rule    Rule `json:"rule"`
}

type Resolver struct {
	entries Entries
	unknown Policy
}

func NewResolver(entries Entries, unknown Policy) *Resolver {
	if entries == nil {
		entries = Table{}
	}
	if unknown == "" {
		unknown = PolicyDeny
	}
	return &Resolver{entries: entries, unknown: unknown}
}

// CanAccess reports whether sess may open pageID. A false result is an
// ordinary outcome, not an error.
func (r *Resolver) CanAccess(sess *session.Session, pageID string) bool {
	return r.Decide(sess, pageID).Allowed
}

// Decide runs the resolution chain; the first matching rule wins.
func (r *Resolver) Decide(sess *session.Session, pageID string) Decision {
	d := r.decide(sess, pageID)
	metrics.AccessDecision(string(d.Rule), d.Allowed)
	return d
}

func (r *Resolver) decide(sess *session.Session, pageID string) Decision {
	if sess == nil {
		return Decision{Allowed: false, Rule: RuleNoSession}
	}
	if sess.IsPatient {
		if pageID == auth.PagePatientPortal {
			return Decision{Allowed: true, Rule: RulePatientPortal}
		}
		return Decision{Allowed: false, Rule: RulePatientDenied}
	}
	if sess.Role == auth.Supervisor {
		return Decision{Allowed: true, Rule: RuleSupervisor}
	}
	if entry, ok := r.entries.Entry(pageID); ok {
		return Decision{Allowed: entryAllows(entry, sess), Rule: RulePageEntry}
	}
	if allowed, ok := sess.Permissions.Lookup(pageID); ok {
		return Decision{Allowed: allowed, Rule: RuleLegacy}
	}
	return Decision{Allowed: r.unknown == PolicyAllow, Rule: RuleUnknownPage}
}

func entryAllows(e PageEntry, sess *session.Session) bool {
	roleAllowed := contains(e.Roles, string(auth.RoleAll)) || contains(e.Roles, string(sess.Role))
	jobTitleAllowed := len(e.JobTitles) == 0 || (sess.JobTitle != "" && contains(e.JobTitles, sess.JobTitle))

	switch {
	case len(e.Roles) > 0 && len(e.JobTitles) > 0:
		return roleAllowed || jobTitleAllowed
	case len(e.JobTitles) > 0:
		return jobTitleAllowed
	default:
		return roleAllowed
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
