package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/notification"
	"backoffice/internal/infrastructure/metrics"
)

type enqueued struct {
	task      *asynq.Task
	taskID    string
	processIn time.Duration
	retention time.Duration
}

type recordingEnqueuer struct {
	tasks []enqueued
	ids   map[string]bool
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	e := enqueued{task: task}
	for _, o := range opts {
		switch o.Type() {
		case asynq.TaskIDOpt:
			e.taskID = o.Value().(string)
		case asynq.ProcessInOpt:
			e.processIn = o.Value().(time.Duration)
		case asynq.RetentionOpt:
			e.retention = o.Value().(time.Duration)
		}
	}
	if e.taskID != "" {
		if r.ids == nil {
			r.ids = map[string]bool{}
		}
		if r.ids[e.taskID] {
			return nil, asynq.ErrTaskIDConflict
		}
		r.ids[e.taskID] = true
	}
	r.tasks = append(r.tasks, e)
	return &asynq.TaskInfo{ID: e.taskID, Queue: QueueDefault}, nil
}

// process drops task i as a worker would. asynq frees the TaskID of a
// processed task unless it is retained.
func (r *recordingEnqueuer) process(i int) {
	if e := r.tasks[i]; e.retention == 0 {
		delete(r.ids, e.taskID)
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
}

type recordingDeleter struct {
	existing map[string]bool
	deleted  []string
}

func (d *recordingDeleter) DeleteTask(queue, taskID string) error {
	if queue != QueueDefault {
		return errors.New("unexpected queue " + queue)
	}
	if !d.existing[taskID] {
		return asynq.ErrTaskNotFound
	}
	d.deleted = append(d.deleted, taskID)
	return nil
}

func testNotice(kind notification.Kind) notification.Notice {
	return notification.Notice{
		Kind:        kind,
		FormID:      id.New(),
		FormType:    "stock correction",
		FormNumber:  "SC2401001",
		RecipientID: id.New(),
		RequestedBy: id.New(),
	}
}

func TestNotifier_NotifyApprover(t *testing.T) {
	enq := &recordingEnqueuer{}
	n := NewNotifier(enq, &recordingDeleter{})
	notice := testNotice(notification.KindApproval)

	require.NoError(t, n.NotifyApprover(context.Background(), notice))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskNotifyApprover, enq.tasks[0].task.Type())

	p, err := decodePayload(enq.tasks[0].task)
	require.NoError(t, err)
	assert.Equal(t, notice, p.Notice)
}

func TestNotifier_NotifyApproverWrapsEnqueueError(t *testing.T) {
	boom := errors.New("redis down")
	n := NewNotifier(&recordingEnqueuer{err: boom}, &recordingDeleter{})

	err := n.NotifyApprover(context.Background(), testNotice(notification.KindApproval))
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_ScheduleReminderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	enq := &recordingEnqueuer{}
	n := NewNotifier(enq, &recordingDeleter{})
	notice := testNotice(notification.KindCancellation)
	key := notification.CancellationKey(notice.FormID)
	r := notification.Reminder{Key: key, Interval: time.Hour, Limit: 3, Notice: notice}

	require.NoError(t, n.ScheduleReminder(ctx, r))
	require.NoError(t, n.ScheduleReminder(ctx, r))

	require.Len(t, enq.tasks, 3)
	for i, e := range enq.tasks {
		assert.Equal(t, TaskReminder, e.task.Type())
		assert.Equal(t, ReminderTaskID(key, i+1), e.taskID)
		assert.Equal(t, time.Duration(i+1)*time.Hour, e.processIn)
		assert.Equal(t, 3*time.Hour, e.retention)
	}
}

func TestNotifier_ScheduleReminderSkipsProcessedOccurrences(t *testing.T) {
	ctx := context.Background()
	enq := &recordingEnqueuer{}
	n := NewNotifier(enq, &recordingDeleter{})
	notice := testNotice(notification.KindCancellation)
	key := notification.CancellationKey(notice.FormID)
	r := notification.Reminder{Key: key, Interval: time.Hour, Limit: 6, Notice: notice}

	require.NoError(t, n.ScheduleReminder(ctx, r))
	enq.process(0)
	require.NoError(t, n.ScheduleReminder(ctx, r))

	assert.Len(t, enq.tasks, 5)
	for _, e := range enq.tasks {
		assert.NotEqual(t, ReminderTaskID(key, 1), e.taskID)
	}
}

func TestNotifier_CancelReminder(t *testing.T) {
	key := notification.UpdateKey(id.New())
	del := &recordingDeleter{existing: map[string]bool{
		ReminderTaskID(key, 2): true,
		ReminderTaskID(key, 3): true,
	}}
	n := NewNotifier(&recordingEnqueuer{}, del)

	require.NoError(t, n.CancelReminder(context.Background(), key, 4))
	assert.Equal(t, []string{ReminderTaskID(key, 2), ReminderTaskID(key, 3)}, del.deleted)
}

type fakeForms map[id.ID]*form.Form

func (f fakeForms) GetForm(_ context.Context, formID id.ID) (*form.Form, error) {
	fm, ok := f[formID]
	if !ok {
		return nil, apperror.NewNotFound("Form", formID)
	}
	return fm, nil
}

type recordingMailer struct {
	sent []notification.Notice
	err  error
}

func (m *recordingMailer) Send(_ context.Context, n notification.Notice) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func reminderTask(t *testing.T, notice notification.Notice) *asynq.Task {
	t.Helper()
	task, err := NewReminderTask("key", 1, notice)
	require.NoError(t, err)
	return task
}

func TestHandleNotifyApprover(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandlers(fakeForms{}, mailer, metrics.New(prometheus.NewRegistry()))
	notice := testNotice(notification.KindApproval)

	task, err := NewNotifyApproverTask(notice)
	require.NoError(t, err)
	require.NoError(t, h.HandleNotifyApprover(context.Background(), task))
	assert.Equal(t, []notification.Notice{notice}, mailer.sent)
}

func TestHandlers_SkipRetryOnMalformedPayload(t *testing.T) {
	h := NewHandlers(fakeForms{}, &recordingMailer{}, nil)

	err := h.HandleNotifyApprover(context.Background(), asynq.NewTask(TaskNotifyApprover, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleReminder(context.Background(), asynq.NewTask(TaskReminder, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleReminder(t *testing.T) {
	ctx := context.Background()
	maker, approver := id.New(), id.New()
	pending := form.New("stock correction", id.New(), id.New(), maker, approver, "SC2401001", "", time.Now())
	approved := pending
	approved.MarkApproved(approver, time.Now())

	forms := fakeForms{}
	pendingNotice := testNotice(notification.KindApproval)
	forms[pendingNotice.FormID] = &pending
	approvedNotice := testNotice(notification.KindApproval)
	forms[approvedNotice.FormID] = &approved
	goneNotice := testNotice(notification.KindApproval)

	mailer := &recordingMailer{}
	h := NewHandlers(forms, mailer, nil)

	require.NoError(t, h.HandleReminder(ctx, reminderTask(t, pendingNotice)))
	require.NoError(t, h.HandleReminder(ctx, reminderTask(t, approvedNotice)))
	require.NoError(t, h.HandleReminder(ctx, reminderTask(t, goneNotice)))

	assert.Equal(t, []notification.Notice{pendingNotice}, mailer.sent)
}

func TestHandleReminder_RetriesDeliveryFailure(t *testing.T) {
	notice := testNotice(notification.KindUpdate)
	fm := form.New("sales invoice", id.New(), id.New(), id.New(), notice.RecipientID, "IN2401001", "", time.Now())
	boom := errors.New("smtp down")
	h := NewHandlers(fakeForms{notice.FormID: &fm}, &recordingMailer{err: boom}, nil)

	err := h.HandleReminder(context.Background(), reminderTask(t, notice))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestStillPending(t *testing.T) {
	maker, approver := id.New(), id.New()
	f := form.New("stock correction", id.New(), id.New(), maker, approver, "SC2401001", "", time.Now())

	assert.True(t, StillPending(&f, notification.KindApproval))
	assert.True(t, StillPending(&f, notification.KindUpdate))
	assert.False(t, StillPending(&f, notification.KindCancellation))

	f.MarkApproved(approver, time.Now())
	assert.False(t, StillPending(&f, notification.KindApproval))

	f.RequestCancellation(maker, "duplicate", time.Now())
	assert.True(t, StillPending(&f, notification.KindCancellation))

	assert.False(t, StillPending(&f, notification.Kind("unknown")))
}
