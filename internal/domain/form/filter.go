package form

import (
	"strings"

	"backoffice/internal/core/apperror"
)

// DoneFilter selects forms by their done/cancellation position.
type DoneFilter string

const (
	DonePending              DoneFilter = "pending"
	DoneDone                 DoneFilter = "done"
	DoneCancellationApproved DoneFilter = "cancellationApproved"
)

var approvalFilters = map[string]Status{
	"approvalPending":  StatusPending,
	"approvalApproved": StatusApproved,
	"approvalRejected": StatusRejected,
}

// Filter is the parsed "<done>;<approval>" status filter.
// A zero Filter matches every form.
type Filter struct {
	Enabled  bool
	Done     *DoneFilter
	Approval *Status
}

// ParseFilter parses the filter_form query value. Each half may be "null".
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Filter{}, nil
	}

	donePart, approvalPart, _ := strings.Cut(raw, ";")
	f := Filter{Enabled: true}

	switch d := DoneFilter(strings.TrimSpace(donePart)); d {
	case "null", "":
	case DonePending, DoneDone, DoneCancellationApproved:
		f.Done = &d
	default:
		return Filter{}, apperror.NewValidation("invalid filter_form").WithDetail("done", donePart)
	}

	switch a := strings.TrimSpace(approvalPart); a {
	case "null", "":
	default:
		s, ok := approvalFilters[a]
		if !ok {
			return Filter{}, apperror.NewValidation("invalid filter_form").WithDetail("approval", approvalPart)
		}
		f.Approval = &s
	}

	return f, nil
}

// WantsCancelled reports whether the filter selects cancelled forms
// (cancellation_status = 1). Otherwise an enabled filter selects forms
// without any cancellation (cancellation_status IS NULL).
func (f Filter) WantsCancelled() bool {
	return f.Done != nil && *f.Done == DoneCancellationApproved
}

// DoneValue returns the done column value to match, if any.
func (f Filter) DoneValue() (bool, bool) {
	if f.Done == nil || f.WantsCancelled() {
		return false, false
	}
	return *f.Done == DoneDone, true
}

// Match evaluates the filter against a form in memory.
func (f Filter) Match(fm *Form) bool {
	if !f.Enabled {
		return true
	}
	if f.WantsCancelled() {
		if !fm.IsCancelled() {
			return false
		}
	} else if fm.CancellationStatus != nil {
		return false
	}
	if done, ok := f.DoneValue(); ok && fm.Done != done {
		return false
	}
	if f.Approval != nil && fm.ApprovalStatus != *f.Approval {
		return false
	}
	return true
}
