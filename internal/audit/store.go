package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, e *Entry) error {
	return s.Insert(ctx, e)
}

func (s *Store) Insert(ctx context.Context, e *Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	if e.Fields == nil {
		e.Fields = map[string]interface{}{}
	}
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO audit_log (actor, action, outcome, reason, page_id, fields, ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	row := s.db.QueryRowContext(ctx, q,
		e.Actor,
		string(e.Action),
		string(e.Outcome),
		e.Reason,
		e.PageID,
		string(fieldsJSON),
		e.Timestamp,
		time.Now().UTC(),
	)
	return row.Scan(&e.ID, &e.CreatedAt)
}

func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if f.Actor != "" {
		clauses = append(clauses, "actor = $"+itoa(argIdx))
		args = append(args, f.Actor)
		argIdx++
	}
	if f.Action != "" {
		clauses = append(clauses, "action = $"+itoa(argIdx))
		args = append(args, string(f.Action))
		argIdx++
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = $"+itoa(argIdx))
		args = append(args, string(f.Outcome))
		argIdx++
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "ts >= $"+itoa(argIdx))
		args = append(args, f.Since)
		argIdx++
	}
	if !f.Until.IsZero() {
		clauses = append(clauses, "ts <= $"+itoa(argIdx))
		args = append(args, f.Until)
		argIdx++
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	query := "SELECT id, actor, action, outcome, reason, page_id, fields, ts, created_at FROM audit_log WHERE " +
		strings.Join(clauses, " AND ") + " ORDER BY ts DESC LIMIT " + itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var action, outcome string
		var fieldsJSON []byte
		if err := rows.Scan(&e.ID, &e.Actor, &action, &outcome, &e.Reason, &e.PageID,
			&fieldsJSON, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		e.Outcome = Outcome(outcome)
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, err
			}
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
