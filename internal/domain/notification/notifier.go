// Package notification defines how approvers are told about pending
// decisions. Delivery is asynchronous and never part of a transition.
package notification

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/id"
)

// Kind is the decision an approver is asked for.
type Kind string

const (
	KindApproval     Kind = "approval"
	KindCancellation Kind = "cancellation"
	KindUpdate       Kind = "update"
)

// Defaults for reminder series.
const (
	DefaultReminderInterval = 24 * time.Hour
	DefaultReminderLimit    = 6
)

// Notice asks RecipientID for a decision on a form.
type Notice struct {
	Kind        Kind   `json:"kind"`
	FormID      id.ID  `json:"formId"`
	FormType    string `json:"formType"`
	FormNumber  string `json:"formNumber"`
	RecipientID id.ID  `json:"recipientId"`
	RequestedBy id.ID  `json:"requestedBy"`
	Reason      string `json:"reason,omitempty"`
}

// Reminder repeats a notice Limit times, every Interval. Key identifies
// the series so scheduling it twice creates one series.
type Reminder struct {
	Key      string
	Interval time.Duration
	Limit    int
	Notice   Notice
}

// Notifier delivers notices.
type Notifier interface {
	NotifyApprover(ctx context.Context, n Notice) error
	ScheduleReminder(ctx context.Context, r Reminder) error
	CancelReminder(ctx context.Context, key string, limit int) error
}

// CancellationKey is the reminder key of a cancellation request.
func CancellationKey(formID id.ID) string {
	return fmt.Sprintf("delete-email-approval-%s", formID)
}

// UpdateKey is the reminder key of an edit request.
func UpdateKey(formID id.ID) string {
	return fmt.Sprintf("update-email-approval-%s", formID)
}
