package approvals

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Repository is the persistence the workflow needs.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, f ListFilter) ([]Request, error)
	// UpdateStatus applies u only while the request is still in status
	// from; otherwise it returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, from Status, u StatusUpdate) error
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, req *Request) error {
	if req.Status == "" {
		req.Status = StatusPending
	}
	const q = `
		INSERT INTO diagnosis_approvals
		(id, patient_id, diagnosis, created_by, status, reviewed_by, approved_by, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, q,
		req.ID,
		req.PatientID,
		req.Diagnosis,
		req.CreatedBy,
		string(req.Status),
		req.ReviewedBy,
		req.ApprovedBy,
		req.Note,
		now,
		now,
	)
	return row.Scan(&req.CreatedAt, &req.UpdatedAt)
}

const requestColumns = "id, patient_id, diagnosis, created_by, status, reviewed_by, approved_by, note, created_at, updated_at"

func (s *Store) List(ctx context.Context, f ListFilter) ([]Request, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	idx := 1
	if f.PatientID != "" {
		clauses = append(clauses, "patient_id = $"+itoa(idx))
		args = append(args, f.PatientID)
		idx++
	}
	if f.Status != "" {
		clauses = append(clauses, "status = $"+itoa(idx))
		args = append(args, string(f.Status))
		idx++
	}
	if f.CreatedBy != "" {
		clauses = append(clauses, "created_by = $"+itoa(idx))
		args = append(args, f.CreatedBy)
		idx++
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := "SELECT " + requestColumns +
		" FROM diagnosis_approvals WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY created_at DESC LIMIT " + itoa(limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM diagnosis_approvals WHERE id = $1", id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from Status, u StatusUpdate) error {
	const q = `
		UPDATE diagnosis_approvals
		SET status = $1,
		    reviewed_by = COALESCE(NULLIF($2, ''), reviewed_by),
		    approved_by = COALESCE(NULLIF($3, ''), approved_by),
		    note = COALESCE(NULLIF($4, ''), note),
		    updated_at = $5
		WHERE id = $6 AND status = $7
	`
	res, err := s.db.ExecContext(ctx, q, string(u.Status), u.ReviewedBy, u.ApprovedBy, u.Note,
		time.Now().UTC(), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	var status string
	if err := row.Scan(&req.ID, &req.PatientID, &req.Diagnosis, &req.CreatedBy, &status,
		&req.ReviewedBy, &req.ApprovedBy, &req.Note, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Status = Status(status)
	return &req, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
