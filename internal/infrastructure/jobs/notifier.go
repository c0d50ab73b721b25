package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"backoffice/internal/domain/notification"
	"backoffice/pkg/logger"
)

// Enqueuer is the part of asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskDeleter is the part of asynq.Inspector the notifier uses.
type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

// Notifier implements notification.Notifier on asynq.
type Notifier struct {
	client    Enqueuer
	inspector TaskDeleter
}

// NewNotifier creates a notifier.
func NewNotifier(client Enqueuer, inspector TaskDeleter) *Notifier {
	return &Notifier{client: client, inspector: inspector}
}

var _ notification.Notifier = (*Notifier)(nil)

// NotifyApprover enqueues an immediate notice.
func (n *Notifier) NotifyApprover(ctx context.Context, notice notification.Notice) error {
	task, err := NewNotifyApproverTask(notice)
	if err != nil {
		return err
	}
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskNotifyApprover, err)
	}
	return nil
}

// ScheduleReminder enqueues occurrences 1..Limit, the n-th after
// n×Interval. Occurrences already scheduled under the same key are kept.
// Processed occurrences are retained for the length of the series so their
// ids stay taken and a repeated schedule cannot send them again.
func (n *Notifier) ScheduleReminder(ctx context.Context, r notification.Reminder) error {
	retention := r.Interval * time.Duration(r.Limit)
	for i := 1; i <= r.Limit; i++ {
		task, err := NewReminderTask(r.Key, i, r.Notice)
		if err != nil {
			return err
		}
		_, err = n.client.EnqueueContext(ctx, task,
			asynq.TaskID(ReminderTaskID(r.Key, i)),
			asynq.ProcessIn(r.Interval*time.Duration(i)),
			asynq.Retention(retention),
		)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("enqueue reminder %s: %w", ReminderTaskID(r.Key, i), err)
		}
	}
	logger.Debug(ctx, "reminder series scheduled", "key", r.Key, "limit", r.Limit, "interval", r.Interval)
	return nil
}

// CancelReminder deletes the pending occurrences of a series.
func (n *Notifier) CancelReminder(ctx context.Context, key string, limit int) error {
	var errs []error
	for i := 1; i <= limit; i++ {
		err := n.inspector.DeleteTask(QueueDefault, ReminderTaskID(key, i))
		if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			continue
		}
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("cancel reminder %s: %w", key, errors.Join(errs...))
	}
	logger.Debug(ctx, "reminder series cancelled", "key", key)
	return nil
}
