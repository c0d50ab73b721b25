// Package approval runs the maker-checker lifecycle shared by every
// document type: approve, reject and the cancellation request round trip.
// Document specific steps plug in through Store and the OnCancelled hook.
package approval

import (
	"context"
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/authz"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/notification"
	"backoffice/internal/domain/posting"
	"backoffice/pkg/logger"
)

// Document is a postable document handled by the workflow.
type Document interface {
	posting.Postable
}

// Store is the persistence the workflow needs from a document repository.
type Store[T Document] interface {
	// GetForUpdate loads and row-locks the document. NotFound when absent.
	GetForUpdate(ctx context.Context, docID id.ID) (T, error)
	// SaveForm persists the approval envelope.
	SaveForm(ctx context.Context, f *form.Form) error
	// SaveSnapshots persists the stock snapshots of the lines.
	SaveSnapshots(ctx context.Context, doc T) error
}

// Config describes one document type.
type Config struct {
	// Label is the formable type, e.g. "stock correction".
	Label string
	// CancelMessage is returned when a non-maker requests cancellation.
	CancelMessage string
	// EditMessage is returned when a non-maker edits. Defaults to CancelMessage.
	EditMessage string
	// AllowMakerBypass lets the bypass capability request cancellation of
	// someone else's document.
	AllowMakerBypass bool

	ReminderInterval time.Duration
	ReminderLimit    int
}

// Observer is told about every transition outcome.
type Observer interface {
	Transition(docType string, action audit.Action, err error)
	NotificationFailed(docType string, kind notification.Kind)
}

type nopObserver struct{}

func (nopObserver) Transition(string, audit.Action, error) {}
func (nopObserver) NotificationFailed(string, notification.Kind) {}

// Deps are the collaborators shared by all workflows.
type Deps struct {
	Tx       tx.Manager
	Gate     *authz.Gate
	Engine   *posting.Engine
	Notifier notification.Notifier
	Audit    audit.Recorder
	Observer Observer
	Now      func() time.Time
}

// Workflow runs lifecycle transitions for one document type.
type Workflow[T Document] struct {
	cfg         Config
	store       Store[T]
	deps        Deps
	onCancelled func(ctx context.Context, doc T) error
}

// New creates a workflow.
func New[T Document](cfg Config, store Store[T], deps Deps) *Workflow[T] {
	if cfg.EditMessage == "" {
		cfg.EditMessage = cfg.CancelMessage
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = notification.DefaultReminderInterval
	}
	if cfg.ReminderLimit <= 0 {
		cfg.ReminderLimit = notification.DefaultReminderLimit
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Workflow[T]{cfg: cfg, store: store, deps: deps}
}

// OnCancelled registers a step run inside the cancellation approval
// transaction, after postings are reversed.
func (w *Workflow[T]) OnCancelled(fn func(ctx context.Context, doc T) error) {
	w.onCancelled = fn
}

// Config returns the document type configuration.
func (w *Workflow[T]) Config() Config { return w.cfg }

// Approve posts the document. Approving twice returns the document as is.
func (w *Workflow[T]) Approve(ctx context.Context, actor, docID id.ID) (T, error) {
	var (
		doc     T
		already bool
	)
	err := w.deps.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if doc, err = w.store.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		if already, err = w.deps.Engine.Approve(ctx, doc, actor); err != nil || already {
			return err
		}
		if err := w.store.SaveSnapshots(ctx, doc); err != nil {
			return err
		}
		return w.store.SaveForm(ctx, doc.GetForm())
	})
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionApprove, err)
	if err != nil {
		var zero T
		return zero, err
	}
	if !already {
		w.record(ctx, audit.ActionApprove, actor, doc)
	}
	return doc, nil
}

// Reject records the rejection. The reason is optional.
func (w *Workflow[T]) Reject(ctx context.Context, actor, docID id.ID, reason string) (T, error) {
	var (
		doc     T
		already bool
	)
	err := w.deps.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if doc, err = w.store.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		f := doc.GetForm()
		if already, err = f.CheckReject(actor); err != nil || already {
			return err
		}
		f.MarkRejected(actor, w.deps.Now(), reason)
		return w.store.SaveForm(ctx, f)
	})
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionReject, err)
	if err != nil {
		var zero T
		return zero, err
	}
	if !already {
		w.record(ctx, audit.ActionReject, actor, doc)
	}
	return doc, nil
}

// RequestCancellation asks the approver to cancel the document.
func (w *Workflow[T]) RequestCancellation(ctx context.Context, actor, docID id.ID, reason string) (T, error) {
	var doc T
	err := w.deps.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if doc, err = w.store.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		f := doc.GetForm()

		bypass := false
		if w.cfg.AllowMakerBypass {
			if bypass, err = w.deps.Gate.CanBypass(ctx, actor); err != nil {
				return err
			}
		}
		if err := f.CheckMaker(actor, bypass, w.cfg.CancelMessage); err != nil {
			return err
		}
		if err := f.CheckNotDone("delete"); err != nil {
			return err
		}
		if err := f.CheckActive(); err != nil {
			return err
		}
		if err := w.checkAccess(ctx, actor, doc, authz.ActionDelete, f.RequestApprovalTo); err != nil {
			return err
		}

		reason, err = form.RequireReason(reason)
		if err != nil {
			return err
		}
		if f.IsApproved() {
			if err := w.deps.Engine.CheckReversible(ctx, doc); err != nil {
				return err
			}
		}

		f.RequestCancellation(actor, reason, w.deps.Now())
		return w.store.SaveForm(ctx, f)
	})
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionCancelRequest, err)
	if err != nil {
		var zero T
		return zero, err
	}

	f := doc.GetForm()
	notice := w.notice(notification.KindCancellation, actor, f, reason)
	w.notify(ctx, notice)
	w.schedule(ctx, notification.CancellationKey(f.ID), notice)
	w.record(ctx, audit.ActionCancelRequest, actor, doc)
	return doc, nil
}

// ApproveCancellation reverses the postings and cancels the document.
func (w *Workflow[T]) ApproveCancellation(ctx context.Context, actor, docID id.ID) (T, error) {
	var (
		doc     T
		already bool
	)
	err := w.deps.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if doc, err = w.store.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		f := doc.GetForm()
		if already, err = f.CheckCancellationApprove(actor); err != nil || already {
			return err
		}

		if f.IsApproved() {
			if err := w.deps.Engine.CheckReversible(ctx, doc); err != nil {
				return err
			}
			if err := w.deps.Engine.Reverse(ctx, f.ID); err != nil {
				return err
			}
		}

		f.MarkCancellationApproved(actor, w.deps.Now())
		if err := w.store.SaveForm(ctx, f); err != nil {
			return err
		}
		if w.onCancelled != nil {
			return w.onCancelled(ctx, doc)
		}
		return nil
	})
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionCancelApprove, err)
	if err != nil {
		var zero T
		return zero, err
	}
	if !already {
		w.cancelReminder(ctx, notification.CancellationKey(doc.GetForm().ID))
		w.record(ctx, audit.ActionCancelApprove, actor, doc)
	}
	return doc, nil
}

// RejectCancellation keeps the document and records the reason.
func (w *Workflow[T]) RejectCancellation(ctx context.Context, actor, docID id.ID, reason string) (T, error) {
	var (
		doc     T
		already bool
	)
	err := w.deps.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if doc, err = w.store.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		f := doc.GetForm()
		if already, err = f.CheckCancellationReject(actor); err != nil || already {
			return err
		}
		f.MarkCancellationRejected(actor, w.deps.Now(), reason)
		return w.store.SaveForm(ctx, f)
	})
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionCancelReject, err)
	if err != nil {
		var zero T
		return zero, err
	}
	if !already {
		w.cancelReminder(ctx, notification.CancellationKey(doc.GetForm().ID))
		w.record(ctx, audit.ActionCancelReject, actor, doc)
	}
	return doc, nil
}

// CheckEdit runs the edit guards for a locked document: maker only, not
// done, not cancelled, default location and update/approve permissions.
func (w *Workflow[T]) CheckEdit(ctx context.Context, actor id.ID, doc T, approver id.ID) error {
	f := doc.GetForm()
	if err := f.CheckMaker(actor, false, w.cfg.EditMessage); err != nil {
		return err
	}
	if err := f.CheckNotDone("update"); err != nil {
		return err
	}
	if err := f.CheckActive(); err != nil {
		return err
	}
	return w.checkAccess(ctx, actor, doc, authz.ActionUpdate, approver)
}

// CheckCreate runs the location and permission guards of a new document.
func (w *Workflow[T]) CheckCreate(ctx context.Context, actor, branchID, warehouseID, approver id.ID) error {
	if err := w.deps.Gate.RequireLocation(ctx, actor, branchID, warehouseID); err != nil {
		return err
	}
	return w.checkPermissions(ctx, actor, authz.ActionCreate, approver)
}

// Created runs the after-commit steps of a create.
func (w *Workflow[T]) Created(ctx context.Context, actor id.ID, doc T, err error) {
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionCreate, err)
	if err != nil {
		return
	}
	w.notify(ctx, w.notice(notification.KindApproval, actor, doc.GetForm(), ""))
	w.record(ctx, audit.ActionCreate, actor, doc)
}

// Edited runs the after-commit steps of an update: the approver is asked
// again and a reminder series is started.
func (w *Workflow[T]) Edited(ctx context.Context, actor id.ID, doc T, err error) {
	w.deps.Observer.Transition(w.cfg.Label, audit.ActionUpdate, err)
	if err != nil {
		return
	}
	f := doc.GetForm()
	notice := w.notice(notification.KindUpdate, actor, f, "")
	w.notify(ctx, notice)
	w.cancelReminder(ctx, notification.CancellationKey(f.ID))
	w.schedule(ctx, notification.UpdateKey(f.ID), notice)
	w.record(ctx, audit.ActionUpdate, actor, doc)
}

func (w *Workflow[T]) checkAccess(ctx context.Context, actor id.ID, doc T, action string, approver id.ID) error {
	f := doc.GetForm()
	if err := w.deps.Gate.RequireLocation(ctx, actor, f.BranchID, doc.GetWarehouseID()); err != nil {
		return err
	}
	return w.checkPermissions(ctx, actor, action, approver)
}

func (w *Workflow[T]) checkPermissions(ctx context.Context, actor id.ID, action string, approver id.ID) error {
	if err := w.deps.Gate.Check(ctx, actor, authz.Permission(action, w.cfg.Label)); err != nil {
		return err
	}
	return w.deps.Gate.Check(ctx, approver, authz.Permission(authz.ActionApprove, w.cfg.Label))
}

func (w *Workflow[T]) notice(kind notification.Kind, actor id.ID, f *form.Form, reason string) notification.Notice {
	return notification.Notice{
		Kind:        kind,
		FormID:      f.ID,
		FormType:    f.FormableType,
		FormNumber:  f.Number,
		RecipientID: f.RequestApprovalTo,
		RequestedBy: actor,
		Reason:      reason,
	}
}

func (w *Workflow[T]) notify(ctx context.Context, n notification.Notice) {
	if err := w.deps.Notifier.NotifyApprover(ctx, n); err != nil {
		w.deps.Observer.NotificationFailed(w.cfg.Label, n.Kind)
		logger.Warn(ctx, "notify approver failed", "form_id", n.FormID, "kind", n.Kind, "error", err)
	}
}

func (w *Workflow[T]) schedule(ctx context.Context, key string, n notification.Notice) {
	r := notification.Reminder{
		Key:      key,
		Interval: w.cfg.ReminderInterval,
		Limit:    w.cfg.ReminderLimit,
		Notice:   n,
	}
	if err := w.deps.Notifier.ScheduleReminder(ctx, r); err != nil {
		w.deps.Observer.NotificationFailed(w.cfg.Label, n.Kind)
		logger.Warn(ctx, "schedule reminder failed", "key", key, "error", err)
	}
}

func (w *Workflow[T]) cancelReminder(ctx context.Context, key string) {
	if err := w.deps.Notifier.CancelReminder(ctx, key, w.cfg.ReminderLimit); err != nil {
		logger.Warn(ctx, "cancel reminder failed", "key", key, "error", err)
	}
}

func (w *Workflow[T]) record(ctx context.Context, action audit.Action, actor id.ID, doc T) {
	f := doc.GetForm()
	err := w.deps.Audit.Record(ctx, audit.Entry{
		EntityType: w.cfg.Label,
		EntityID:   f.ID,
		Action:     action,
		ActorID:    actor,
		Snapshot:   doc,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed", "form_id", f.ID, "action", action, "error", err)
	}
}
