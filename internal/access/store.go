package access

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var ErrEntryNotFound = errors.New("page permission entry not found")

// TableStore persists page permission entries.
type TableStore interface {
	List(ctx context.Context) ([]PageEntry, error)
	Put(ctx context.Context, e *PageEntry) error
	Delete(ctx context.Context, pageID string) error
}

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) List(ctx context.Context) ([]PageEntry, error) {
	const q = `SELECT page_id, roles, job_titles, updated_at FROM page_permissions ORDER BY page_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []PageEntry
	for rows.Next() {
		var e PageEntry
		var roles, titles pq.StringArray
		if err := rows.Scan(&e.PageID, &roles, &titles, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Roles = nonNil([]string(roles))
		e.JobTitles = nonNil([]string(titles))
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PGStore) Put(ctx context.Context, e *PageEntry) error {
	e.Roles = nonNil(e.Roles)
	e.JobTitles = nonNil(e.JobTitles)
	const q = `
		INSERT INTO page_permissions (page_id, roles, job_titles, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page_id) DO UPDATE
		SET roles = EXCLUDED.roles, job_titles = EXCLUDED.job_titles, updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	row := s.db.QueryRowContext(ctx, q, e.PageID, pq.Array(e.Roles), pq.Array(e.JobTitles), time.Now().UTC())
	return row.Scan(&e.UpdatedAt)
}

func (s *PGStore) Delete(ctx context.Context, pageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page_permissions WHERE page_id = $1`, pageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
