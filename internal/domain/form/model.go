// Package form implements the approval envelope shared by every document:
// numbering, maker/approver identity, approval and cancellation state.
package form

import (
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// Status is the value of an approval or cancellation decision.
type Status int

const (
	StatusPending  Status = 0
	StatusApproved Status = 1
	StatusRejected Status = -1
)

// String returns the lowercase label used in error details.
func (s Status) String() string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Form is the approval envelope of a document.
type Form struct {
	entity.BaseDocument

	BranchID     id.ID     `db:"branch_id" json:"branchId"`
	Date         time.Time `db:"date" json:"date"`
	Number       string    `db:"number" json:"number"`
	Notes        string    `db:"notes" json:"notes"`
	Done         bool      `db:"done" json:"done"`
	FormableType string    `db:"formable_type" json:"formableType"`
	FormableID   id.ID     `db:"formable_id" json:"formableId"`

	RequestApprovalTo id.ID      `db:"request_approval_to" json:"requestApprovalTo"`
	ApprovalStatus    Status     `db:"approval_status" json:"approvalStatus"`
	ApprovalBy        *id.ID     `db:"approval_by" json:"approvalBy,omitempty"`
	ApprovalAt        *time.Time `db:"approval_at" json:"approvalAt,omitempty"`
	ApprovalReason    *string    `db:"approval_reason" json:"approvalReason,omitempty"`

	// CancellationStatus is nil until a cancellation is requested.
	CancellationStatus         *Status    `db:"cancellation_status" json:"cancellationStatus,omitempty"`
	RequestCancellationBy      *id.ID     `db:"request_cancellation_by" json:"requestCancellationBy,omitempty"`
	RequestCancellationTo      *id.ID     `db:"request_cancellation_to" json:"requestCancellationTo,omitempty"`
	RequestCancellationReason  *string    `db:"request_cancellation_reason" json:"requestCancellationReason,omitempty"`
	RequestCancellationAt      *time.Time `db:"request_cancellation_at" json:"requestCancellationAt,omitempty"`
	CancellationApprovalBy     *id.ID     `db:"cancellation_approval_by" json:"cancellationApprovalBy,omitempty"`
	CancellationApprovalAt     *time.Time `db:"cancellation_approval_at" json:"cancellationApprovalAt,omitempty"`
	CancellationApprovalReason *string    `db:"cancellation_approval_reason" json:"cancellationApprovalReason,omitempty"`
}

// New creates a pending form for a freshly created document.
func New(formableType string, formableID, branchID, maker, approver id.ID, number, notes string, at time.Time) Form {
	return Form{
		BaseDocument:      entity.NewBaseDocument(maker, at),
		BranchID:          branchID,
		Date:              at,
		Number:            number,
		Notes:             NormalizeNotes(notes),
		FormableType:      formableType,
		FormableID:        formableID,
		RequestApprovalTo: approver,
		ApprovalStatus:    StatusPending,
	}
}

// IsApproved reports whether the form has been approved.
func (f *Form) IsApproved() bool { return f.ApprovalStatus == StatusApproved }

// IsRejected reports whether the form has been rejected.
func (f *Form) IsRejected() bool { return f.ApprovalStatus == StatusRejected }

// IsCancelled reports whether a cancellation was approved.
func (f *Form) IsCancelled() bool {
	return f.CancellationStatus != nil && *f.CancellationStatus == StatusApproved
}

// IsCancellationPending reports whether a cancellation awaits a decision.
func (f *Form) IsCancellationPending() bool {
	return f.CancellationStatus != nil && *f.CancellationStatus == StatusPending
}

// StatusLabel describes the lifecycle position for error details.
func (f *Form) StatusLabel() string {
	if f.IsCancelled() {
		return "cancelled"
	}
	if f.Done {
		return "done"
	}
	return f.ApprovalStatus.String()
}

// Ref identifies the form in error details.
func (f *Form) Ref() apperror.FormRef {
	return apperror.FormRef{Number: f.Number, Status: f.StatusLabel(), Type: f.FormableType}
}

func statusPtr(s Status) *Status { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func stringPtr(s string) *string { return &s }
