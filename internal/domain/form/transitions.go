package form

import (
	"fmt"
	"strings"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// Guards return already=true when the requested decision is in place and
// the call must be a no-op. They never mutate the form.

// CheckApprove guards the approval decision.
func (f *Form) CheckApprove(actor id.ID) (already bool, err error) {
	if f.IsRejected() {
		return false, apperror.NewAlreadyRejected(f.FormableType).WithForm(f.Ref())
	}
	if actor != f.RequestApprovalTo {
		return false, apperror.NewForbidden("Forbidden").WithForm(f.Ref())
	}
	if f.IsCancelled() {
		return false, f.cancelledError()
	}
	return f.IsApproved(), nil
}

// MarkApproved records the approval.
func (f *Form) MarkApproved(actor id.ID, at time.Time) {
	f.ApprovalStatus = StatusApproved
	f.ApprovalBy = id.Ptr(actor)
	f.ApprovalAt = timePtr(at)
}

// CheckReject guards the rejection decision.
func (f *Form) CheckReject(actor id.ID) (already bool, err error) {
	if f.IsApproved() {
		return false, apperror.NewAlreadyApproved(f.FormableType).WithForm(f.Ref())
	}
	if actor != f.RequestApprovalTo {
		return false, apperror.NewForbidden("Forbidden").WithForm(f.Ref())
	}
	if f.IsCancelled() {
		return false, f.cancelledError()
	}
	return f.IsRejected(), nil
}

// MarkRejected records the rejection. An empty reason is stored as null.
func (f *Form) MarkRejected(actor id.ID, at time.Time, reason string) {
	f.ApprovalStatus = StatusRejected
	f.ApprovalBy = id.Ptr(actor)
	f.ApprovalAt = timePtr(at)
	f.ApprovalReason = nil
	if r := strings.TrimSpace(reason); r != "" {
		f.ApprovalReason = stringPtr(r)
	}
}

// CheckMaker verifies actor created the form. bypass lets a privileged
// actor through where the document type allows it.
func (f *Form) CheckMaker(actor id.ID, bypass bool, message string) error {
	if f.CreatedBy == actor || bypass {
		return nil
	}
	return apperror.NewForbidden(message).WithForm(f.Ref())
}

// CheckNotDone blocks changes to a form consumed by another document.
func (f *Form) CheckNotDone(verb string) error {
	if !f.Done {
		return nil
	}
	return apperror.NewBusinessRule(
		apperror.CodeAlreadyDone,
		fmt.Sprintf("Can not %s already referenced %s", verb, f.FormableType),
	).WithForm(f.Ref())
}

// CheckActive blocks changes to a cancelled form.
func (f *Form) CheckActive() error {
	if f.IsCancelled() {
		return f.cancelledError()
	}
	return nil
}

// RequireReason returns the trimmed reason or ReasonRequired.
func RequireReason(reason string) (string, error) {
	r := strings.TrimSpace(reason)
	if r == "" {
		return "", apperror.NewReasonRequired()
	}
	return r, nil
}

// RequestCancellation opens (or re-opens) a cancellation request addressed
// to the form approver.
func (f *Form) RequestCancellation(actor id.ID, reason string, at time.Time) {
	f.CancellationStatus = statusPtr(StatusPending)
	f.RequestCancellationBy = id.Ptr(actor)
	f.RequestCancellationTo = id.Ptr(f.RequestApprovalTo)
	f.RequestCancellationReason = stringPtr(reason)
	f.RequestCancellationAt = timePtr(at)
	f.CancellationApprovalBy = nil
	f.CancellationApprovalAt = nil
	f.CancellationApprovalReason = nil
}

// CheckCancellationApprove guards the approval of a cancellation request.
func (f *Form) CheckCancellationApprove(actor id.ID) (already bool, err error) {
	if f.CancellationStatus == nil {
		return false, f.noCancellationError()
	}
	if !id.Equal(f.RequestCancellationTo, actor) {
		return false, apperror.NewForbidden("Forbidden").WithForm(f.Ref())
	}
	switch *f.CancellationStatus {
	case StatusApproved:
		return true, nil
	case StatusRejected:
		return false, apperror.NewBusinessRule(
			apperror.CodeAlreadyRejected,
			fmt.Sprintf("Cancellation of %s already rejected", f.FormableType),
		).WithForm(f.Ref())
	}
	return false, nil
}

// MarkCancellationApproved records the cancellation approval.
func (f *Form) MarkCancellationApproved(actor id.ID, at time.Time) {
	f.CancellationStatus = statusPtr(StatusApproved)
	f.CancellationApprovalBy = id.Ptr(actor)
	f.CancellationApprovalAt = timePtr(at)
}

// CheckCancellationReject guards the rejection of a cancellation request.
func (f *Form) CheckCancellationReject(actor id.ID) (already bool, err error) {
	if f.CancellationStatus == nil {
		return false, f.noCancellationError()
	}
	if !id.Equal(f.RequestCancellationTo, actor) {
		return false, apperror.NewForbidden("Forbidden").WithForm(f.Ref())
	}
	switch *f.CancellationStatus {
	case StatusRejected:
		return true, nil
	case StatusApproved:
		return false, apperror.NewBusinessRule(
			apperror.CodeAlreadyApproved,
			fmt.Sprintf("Cancellation of %s already approved", f.FormableType),
		).WithForm(f.Ref())
	}
	return false, nil
}

// MarkCancellationRejected records the cancellation rejection.
func (f *Form) MarkCancellationRejected(actor id.ID, at time.Time, reason string) {
	f.CancellationStatus = statusPtr(StatusRejected)
	f.CancellationApprovalBy = id.Ptr(actor)
	f.CancellationApprovalAt = timePtr(at)
	f.CancellationApprovalReason = nil
	if r := strings.TrimSpace(reason); r != "" {
		f.CancellationApprovalReason = stringPtr(r)
	}
}

// ResetForEdit puts an edited form back to pending approval.
func (f *Form) ResetForEdit(actor, approver id.ID, notes string, at time.Time) {
	f.Date = at
	f.Notes = NormalizeNotes(notes)
	f.Touch(actor, at)
	f.RequestApprovalTo = approver
	f.Done = false

	f.ApprovalStatus = StatusPending
	f.ApprovalBy = nil
	f.ApprovalAt = nil
	f.ApprovalReason = nil

	f.CancellationStatus = nil
	f.RequestCancellationBy = nil
	f.RequestCancellationTo = nil
	f.RequestCancellationReason = nil
	f.RequestCancellationAt = nil
	f.CancellationApprovalBy = nil
	f.CancellationApprovalAt = nil
	f.CancellationApprovalReason = nil
}

func (f *Form) cancelledError() error {
	return apperror.NewBusinessRule(
		apperror.CodeFormCancelled,
		fmt.Sprintf("%s already cancelled", f.FormableType),
	).WithForm(f.Ref())
}

func (f *Form) noCancellationError() error {
	return apperror.NewBusinessRule(
		apperror.CodeInvalidTransition,
		fmt.Sprintf("No cancellation requested for %s", f.FormableType),
	).WithForm(f.Ref())
}
