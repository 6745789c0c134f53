package approvals

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a critical diagnosis waiting for its two sign-offs.
type Request struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patientId"`
	Diagnosis  string    `json:"diagnosis"`
	CreatedBy  string    `json:"createdBy"`
	Status     Status    `json:"status"`
	ReviewedBy string    `json:"reviewedBy,omitempty"`
	ApprovedBy string    `json:"approvedBy,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ListFilter struct {
	PatientID string
	Status    Status
	CreatedBy string
	Limit     int
}

// StatusUpdate is applied by Repository.UpdateStatus. Empty fields keep
// their stored value.
type StatusUpdate struct {
	Status     Status
	ReviewedBy string
	ApprovedBy string
	Note       string
}
