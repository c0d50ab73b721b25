package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/notification"
	"backoffice/internal/infrastructure/metrics"
	"backoffice/pkg/logger"
)

// FormLookup loads the current state of a form by its id.
type FormLookup interface {
	GetForm(ctx context.Context, formID id.ID) (*form.Form, error)
}

// Mailer delivers a notice to its recipient.
type Mailer interface {
	Send(ctx context.Context, n notification.Notice) error
}

// LogMailer writes notices to the log instead of sending them.
type LogMailer struct{}

// Send logs n.
func (LogMailer) Send(ctx context.Context, n notification.Notice) error {
	logger.Info(ctx, "approval notice",
		"kind", n.Kind,
		"form_id", n.FormID,
		"form_type", n.FormType,
		"number", n.FormNumber,
		"recipient_id", n.RecipientID,
	)
	return nil
}

// Handlers processes notification tasks.
type Handlers struct {
	forms   FormLookup
	mailer  Mailer
	metrics *metrics.Metrics
}

// NewHandlers creates the task handlers. m may be nil.
func NewHandlers(forms FormLookup, mailer Mailer, m *metrics.Metrics) *Handlers {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Handlers{forms: forms, mailer: mailer, metrics: m}
}

// HandleNotifyApprover delivers an immediate notice.
func (h *Handlers) HandleNotifyApprover(ctx context.Context, t *asynq.Task) (err error) {
	tracker := h.metrics.Track(TaskNotifyApprover)
	defer func() { tracker.End(err) }()

	p, err := decodePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := h.mailer.Send(ctx, p.Notice); err != nil {
		logger.Warn(ctx, "notice delivery failed", "task", t.Type(), "form_id", p.Notice.FormID, "error", err)
		return err
	}
	return nil
}

// HandleReminder delivers one reminder occurrence unless the decision it
// asks for has already been made.
func (h *Handlers) HandleReminder(ctx context.Context, t *asynq.Task) (err error) {
	tracker := h.metrics.Track(TaskReminder)
	defer func() { tracker.End(err) }()

	p, err := decodePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	f, err := h.forms.GetForm(ctx, p.Notice.FormID)
	if apperror.HasCode(err, apperror.CodeNotFound) {
		logger.Info(ctx, "reminder skipped, form gone", "key", p.Key, "form_id", p.Notice.FormID)
		return nil
	}
	if err != nil {
		return err
	}
	if !StillPending(f, p.Notice.Kind) {
		logger.Debug(ctx, "reminder skipped, decision made", "key", p.Key, "occurrence", p.Occurrence)
		return nil
	}

	if err := h.mailer.Send(ctx, p.Notice); err != nil {
		logger.Warn(ctx, "reminder delivery failed", "key", p.Key, "occurrence", p.Occurrence, "error", err)
		return err
	}
	return nil
}

// StillPending reports whether f still awaits the decision of kind.
func StillPending(f *form.Form, kind notification.Kind) bool {
	switch kind {
	case notification.KindCancellation:
		return f.IsCancellationPending()
	case notification.KindApproval, notification.KindUpdate:
		return f.ApprovalStatus == form.StatusPending && !f.IsCancelled()
	default:
		return false
	}
}

// WorkerConfig collects what the worker needs.
type WorkerConfig struct {
	RedisOpts   asynq.RedisConnOpt
	Concurrency int
	Handlers    *Handlers
}

// Worker runs the asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker constructs a worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Handlers == nil {
		return nil, errors.New("worker: handlers are required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		Logger:      asynqLogger{},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotifyApprover, cfg.Handlers.HandleNotifyApprover)
	mux.HandleFunc(TaskReminder, cfg.Handlers.HandleReminder)
	return &Worker{server: srv, mux: mux}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// asynqLogger routes asynq's own logs through the application logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { logger.Debug(context.Background(), fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logger.Info(context.Background(), fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logger.Warn(context.Background(), fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logger.Error(context.Background(), fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { logger.Fatal(context.Background(), fmt.Sprint(args...)) }
