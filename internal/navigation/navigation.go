// Package navigation filters the portal menu down to what a session may see.
package navigation

import (
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/session"
)

type Item struct {
	PageID string `json:"pageId"`
	Label  string `json:"label"`
}

type Group struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	// SupervisorOnly hides the whole group from every role but the
	// supervisor, before any per-item check runs.
	SupervisorOnly bool   `json:"-"`
	Items          []Item `json:"items"`
}

type Menu []Group

// Checker is the part of the permission resolver the menu needs.
type Checker interface {
	CanAccess(sess *session.Session, pageID string) bool
}

// Filter returns the groups and items visible to sess. Groups left with no
// visible item are dropped.
func Filter(menu Menu, sess *session.Session, checker Checker) []Group {
	var out []Group
	for _, g := range menu {
		if g.SupervisorOnly && (sess == nil || sess.Role != auth.Supervisor) {
			continue
		}
		var items []Item
		for _, it := range g.Items {
			if checker.CanAccess(sess, it.PageID) {
				items = append(items, it)
			}
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, Group{Key: g.Key, Label: g.Label, Items: items})
	}
	return out
}

func DefaultMenu() Menu {
	return Menu{
		{
			Key:   "potilastyo",
			Label: "Potilastyö",
			Items: []Item{
				{PageID: auth.PagePatientRecords, Label: "Potilastiedot"},
				{PageID: auth.PageForms, Label: "Lomakkeet"},
				{PageID: auth.PagePrescriptions, Label: "Reseptit"},
				{PageID: auth.PageLaboratory, Label: "Laboratorio"},
				{PageID: auth.PageImaging, Label: "Kuvantaminen"},
				{PageID: auth.PageReferrals, Label: "Lähetteet"},
			},
		},
		{
			Key:   "viestinta",
			Label: "Ajanvaraus ja viestit",
			Items: []Item{
				{PageID: auth.PageAppointments, Label: "Ajanvaraus"},
				{PageID: auth.PageMessages, Label: "Viestit"},
			},
		},
		{
			Key:   "hyvaksynnat",
			Label: "Hyväksynnät",
			Items: []Item{
				{PageID: auth.PageConfidentialApproval, Label: "Luottamukselliset hyväksynnät"},
			},
		},
		{
			Key:            "hallinta",
			Label:          "Hallinta",
			SupervisorOnly: true,
			Items: []Item{
				{PageID: auth.PageUserManagement, Label: "Käyttäjät"},
				{PageID: auth.PageAuditLogs, Label: "Lokit"},
				{PageID: auth.PageSettings, Label: "Asetukset"},
			},
		},
		{
			Key:   "potilas",
			Label: "Omat tiedot",
			Items: []Item{
				{PageID: auth.PagePatientPortal, Label: "Potilasportaali"},
			},
		},
	}
}
