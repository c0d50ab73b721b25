// Package jobs delivers approval notifications through asynq: immediate
// notices, scheduled reminder series and the worker that sends them.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"backoffice/internal/domain/notification"
)

const (
	// QueueDefault is the queue every notification task goes to.
	QueueDefault = "default"

	// TaskNotifyApprover delivers a notice right away.
	TaskNotifyApprover = "form:notify-approver"
	// TaskReminder is one occurrence of a reminder series.
	TaskReminder = "form:reminder"
)

// NoticePayload is the body of both task types.
type NoticePayload struct {
	Notice notification.Notice `json:"notice"`
	// Key and Occurrence are set on reminders only.
	Key        string `json:"key,omitempty"`
	Occurrence int    `json:"occurrence,omitempty"`
}

// NewNotifyApproverTask builds an immediate notice task.
func NewNotifyApproverTask(n notification.Notice) (*asynq.Task, error) {
	body, err := json.Marshal(NoticePayload{Notice: n})
	if err != nil {
		return nil, fmt.Errorf("marshal notice: %w", err)
	}
	return asynq.NewTask(TaskNotifyApprover, body, asynq.Queue(QueueDefault)), nil
}

// NewReminderTask builds occurrence n of the series key.
func NewReminderTask(key string, n int, notice notification.Notice) (*asynq.Task, error) {
	body, err := json.Marshal(NoticePayload{Notice: notice, Key: key, Occurrence: n})
	if err != nil {
		return nil, fmt.Errorf("marshal reminder: %w", err)
	}
	return asynq.NewTask(TaskReminder, body, asynq.Queue(QueueDefault)), nil
}

// ReminderTaskID is the asynq task id of occurrence n of a series.
func ReminderTaskID(key string, n int) string {
	return fmt.Sprintf("%s:%d", key, n)
}

func decodePayload(t *asynq.Task) (NoticePayload, error) {
	var p NoticePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	return p, nil
}
