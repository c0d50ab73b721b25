package approval_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/app/apptest"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/notification"
)

type transition struct {
	docType string
	action  audit.Action
	failed  bool
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []transition
	failures    []notification.Kind
}

func (o *recordingObserver) Transition(docType string, action audit.Action, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, transition{docType, action, err != nil})
}

func (o *recordingObserver) NotificationFailed(_ string, kind notification.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, kind)
}

func correction(fx *apptest.Fixture, qty int64) stock_correction.CreateRequest {
	q := types.NewQuantity(qty)
	one := decimal.NewFromInt(1)
	return stock_correction.CreateRequest{
		WarehouseID:       fx.Warehouse.ID,
		RequestApprovalTo: fx.Approver,
		Items: []stock_correction.ItemRequest{{
			ItemID: fx.Item.ID, Unit: "pcs", Converter: &one, Quantity: &q,
		}},
	}
}

func TestWorkflow_NotificationFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	fx := apptest.New(t, apptest.WithObserver(obs))
	fx.Notifier.Err = errors.New("smtp unavailable")
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, correction(fx, -5))
	require.NoError(t, err)
	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "duplicate")
	require.NoError(t, err)

	assert.Equal(t, []notification.Kind{
		notification.KindApproval,
		notification.KindCancellation,
		notification.KindCancellation,
	}, obs.failures)
	assert.Equal(t, []transition{
		{stock_correction.DocumentType, audit.ActionCreate, false},
		{stock_correction.DocumentType, audit.ActionCancelRequest, false},
	}, obs.transitions)
}

func TestWorkflow_ObservesFailedTransitions(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	fx := apptest.New(t, apptest.WithObserver(obs))

	_, err := fx.Services.StockCorrections.Approve(ctx, fx.Approver, id.New())
	require.True(t, apperror.IsNotFound(err))
	assert.Equal(t, []transition{{stock_correction.DocumentType, audit.ActionApprove, true}}, obs.transitions)
	assert.Empty(t, fx.Store.AuditEntries())
}

func TestWorkflow_ReminderSeries(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t, apptest.WithReminders(time.Hour, 3))
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, correction(fx, 1))
	require.NoError(t, err)

	// Requesting twice keeps a single series.
	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "one")
	require.NoError(t, err)
	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "two")
	require.NoError(t, err)

	require.Len(t, fx.Notifier.Reminders, 1)
	r := fx.Notifier.Reminders[notification.CancellationKey(sc.Form.ID)]
	assert.Equal(t, time.Hour, r.Interval)
	assert.Equal(t, 3, r.Limit)
	assert.Equal(t, fx.Approver, r.Notice.RecipientID)
}

func TestWorkflow_ConcurrentApprovePostsOnce(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, correction(fx, -10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, fx.Approver, sc.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, types.NewQuantity(90), fx.Stock(t, fx.Item))
	assert.Len(t, fx.Store.JournalEntries(), 2)
}

func TestWorkflow_AuditTrail(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, correction(fx, -10))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "typo")
	require.NoError(t, err)
	_, err = svc.ApproveCancellation(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)

	var actions []audit.Action
	for _, e := range fx.Store.AuditEntries() {
		assert.Equal(t, sc.Form.ID, e.EntityID)
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []audit.Action{
		audit.ActionCreate,
		audit.ActionApprove,
		audit.ActionCancelRequest,
		audit.ActionCancelApprove,
	}, actions)
}
