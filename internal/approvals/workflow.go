package approvals

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hoitoportaali/internal/audit"
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/metrics"
	"hoitoportaali/internal/session"
)

var (
	ErrNotFound          = errors.New("approval request not found")
	ErrForbidden         = errors.New("not allowed to act on approval request")
	ErrInvalidTransition = errors.New("approval request is not in the required status")
	ErrInvalidRequest    = errors.New("patient id and diagnosis are required")
)

// Checker is the part of the permission resolver the workflow needs.
type Checker interface {
	CanAccess(sess *session.Session, pageID string) bool
}

// Workflow runs the two-step sign-off for critical diagnoses: a physician
// reviews, then a holder of the confidential-approval permission approves.
type Workflow struct {
	Repo     Repository
	Access   Checker
	Recorder audit.Recorder
	Logger   zerolog.Logger
}

func NewWorkflow(repo Repository, access Checker, recorder audit.Recorder, logger zerolog.Logger) *Workflow {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Workflow{
		Repo:     repo,
		Access:   access,
		Recorder: recorder,
		Logger:   logger.With().Str("component", "approvals").Logger(),
	}
}

func (w *Workflow) Submit(ctx context.Context, sess *session.Session, patientID, diagnosis string) (*Request, error) {
	if sess == nil || sess.IsPatient || !w.Access.CanAccess(sess, auth.PagePatientRecords) {
		return nil, ErrForbidden
	}
	patientID = strings.TrimSpace(patientID)
	diagnosis = strings.TrimSpace(diagnosis)
	if patientID == "" || diagnosis == "" {
		return nil, ErrInvalidRequest
	}
	req := &Request{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Diagnosis: diagnosis,
		CreatedBy: sess.UserID,
		Status:    StatusPending,
	}
	if err := w.Repo.Create(ctx, req); err != nil {
		return nil, err
	}
	w.done(ctx, sess, req, audit.ActionApprovalSubmit)
	return req, nil
}

// Review is the first sign-off. The submitter cannot review their own
// request.
func (w *Workflow) Review(ctx context.Context, sess *session.Session, id string) (*Request, error) {
	if !canReview(sess) {
		return nil, ErrForbidden
	}
	req, err := w.load(ctx, id, StatusPending)
	if err != nil {
		return nil, err
	}
	if sess.UserID == req.CreatedBy {
		return nil, ErrForbidden
	}
	return w.transition(ctx, sess, req, StatusUpdate{Status: StatusReviewed, ReviewedBy: sess.UserID}, audit.ActionApprovalReview)
}

// Approve is the second sign-off and must come from someone other than the
// reviewer.
func (w *Workflow) Approve(ctx context.Context, sess *session.Session, id string) (*Request, error) {
	if !w.canApprove(sess) {
		return nil, ErrForbidden
	}
	req, err := w.load(ctx, id, StatusReviewed)
	if err != nil {
		return nil, err
	}
	if sess.UserID == req.ReviewedBy {
		return nil, ErrForbidden
	}
	return w.transition(ctx, sess, req, StatusUpdate{Status: StatusApproved, ApprovedBy: sess.UserID}, audit.ActionApprovalApprove)
}

// Reject ends a pending or reviewed request. The caller needs the right to
// perform the step the request is waiting for. Whoever completed the
// previous step cannot reject.
func (w *Workflow) Reject(ctx context.Context, sess *session.Session, id, note string) (*Request, error) {
	if !canReview(sess) && !w.canApprove(sess) {
		return nil, ErrForbidden
	}
	req, err := w.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case StatusPending:
		if !canReview(sess) || sess.UserID == req.CreatedBy {
			return nil, ErrForbidden
		}
	case StatusReviewed:
		if !w.canApprove(sess) || sess.UserID == req.ReviewedBy {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrInvalidTransition
	}
	return w.transition(ctx, sess, req, StatusUpdate{Status: StatusRejected, Note: strings.TrimSpace(note)}, audit.ActionApprovalReject)
}

func (w *Workflow) List(ctx context.Context, sess *session.Session, f ListFilter) ([]Request, error) {
	if sess == nil || sess.IsPatient || !w.Access.CanAccess(sess, auth.PagePatientRecords) {
		return nil, ErrForbidden
	}
	return w.Repo.List(ctx, f)
}

func (w *Workflow) load(ctx context.Context, id string, want Status) (*Request, error) {
	req, err := w.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != want {
		return nil, ErrInvalidTransition
	}
	return req, nil
}

func (w *Workflow) transition(ctx context.Context, sess *session.Session, req *Request, u StatusUpdate, action audit.Action) (*Request, error) {
	if err := w.Repo.UpdateStatus(ctx, req.ID, req.Status, u); err != nil {
		return nil, err
	}
	req.Status = u.Status
	if u.ReviewedBy != "" {
		req.ReviewedBy = u.ReviewedBy
	}
	if u.ApprovedBy != "" {
		req.ApprovedBy = u.ApprovedBy
	}
	if u.Note != "" {
		req.Note = u.Note
	}
	w.done(ctx, sess, req, action)
	return req, nil
}

func (w *Workflow) done(ctx context.Context, sess *session.Session, req *Request, action audit.Action) {
	metrics.ApprovalTransition(string(req.Status))
	w.Logger.Info().Str("request", req.ID).Str("status", string(req.Status)).Str("by", sess.Username).Msg("approval transition")
	e := &audit.Entry{
		Actor:   sess.Username,
		Action:  action,
		Outcome: audit.OutcomeSuccess,
		PageID:  auth.PageConfidentialApproval,
		Fields:  map[string]interface{}{"request": req.ID, "patient": req.PatientID},
	}
	if err := w.Recorder.Record(ctx, e); err != nil {
		w.Logger.Error().Err(err).Str("request", req.ID).Msg("record audit entry")
	}
}

func canReview(sess *session.Session) bool {
	if sess == nil || sess.IsPatient {
		return false
	}
	switch sess.Role {
	case auth.RolePhysician, auth.RoleSpecialist, auth.Supervisor:
		return true
	}
	return false
}

func (w *Workflow) canApprove(sess *session.Session) bool {
	if sess == nil || sess.IsPatient {
		return false
	}
	return w.Access.CanAccess(sess, auth.PageConfidentialApproval)
}
