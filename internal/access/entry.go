package access

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PageEntry grants a page to a set of roles and a set of job titles. When
// both sets are non-empty a match on either one is enough.
type PageEntry struct {
	PageID    string    `json:"pageId" yaml:"page_id"`
	Roles     []string  `json:"roles" yaml:"roles"`
	JobTitles []string  `json:"jobTitles" yaml:"job_titles"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// Entries is the lookup side of a page permission table.
type Entries interface {
	Entry(pageID string) (PageEntry, bool)
}

// Table is a plain page id to entry map.
type Table map[string]PageEntry

func (t Table) Entry(pageID string) (PageEntry, bool) {
	e, ok := t[pageID]
	return e, ok
}

type tableFile struct {
	Pages map[string]struct {
		Roles     []string `yaml:"roles"`
		JobTitles []string `yaml:"job_titles"`
	} `yaml:"pages"`
}

// LoadTableFile reads a YAML page permission table:
//
//	pages:
//	  kuvantaminen:
//	    roles: [PHYSICIAN]
//	    job_titles: [Radiologist]
func LoadTableFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	t := make(Table, len(tf.Pages))
	for pageID, p := range tf.Pages {
		t[pageID] = PageEntry{
			PageID:    pageID,
			Roles:     nonNil(p.Roles),
			JobTitles: nonNil(p.JobTitles),
		}
	}
	return t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
