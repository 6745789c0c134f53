package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionLogin              Action = "login"
	ActionPatientLogin       Action = "patient_login"
	ActionLogout             Action = "logout"
	ActionShiftChange        Action = "shift_change"
	ActionPagePermissionSet  Action = "page_permission_set"
	ActionPagePermissionDrop Action = "page_permission_delete"
	ActionApprovalSubmit     Action = "approval_submit"
	ActionApprovalReview     Action = "approval_review"
	ActionApprovalApprove    Action = "approval_approve"
	ActionApprovalReject     Action = "approval_reject"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type Entry struct {
	ID        int64                  `json:"id"`
	Actor     string                 `json:"actor"`
	Action    Action                 `json:"action"`
	Outcome   Outcome                `json:"outcome"`
	Reason    string                 `json:"reason,omitempty"`
	PageID    string                 `json:"pageId,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	CreatedAt time.Time              `json:"createdAt"`
}

type Filter struct {
	Actor   string
	Action  Action
	Outcome Outcome
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Recorder receives audit entries. Callers log a failed Record and carry on.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, *Entry) error { return nil }
