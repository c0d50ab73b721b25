package stock_correction_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/app/apptest"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/notification"
)

func line(itemID id.ID, qty int64) stock_correction.ItemRequest {
	q := types.NewQuantity(qty)
	one := decimal.NewFromInt(1)
	return stock_correction.ItemRequest{ItemID: itemID, Unit: "pcs", Converter: &one, Quantity: &q}
}

func createReq(fx *apptest.Fixture, lines ...stock_correction.ItemRequest) stock_correction.CreateRequest {
	return stock_correction.CreateRequest{
		WarehouseID:       fx.Warehouse.ID,
		RequestApprovalTo: fx.Approver,
		Notes:             "monthly count",
		Items:             lines,
	}
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Message
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)

	assert.Equal(t, "SC2101001", sc.Form.Number)
	assert.Equal(t, form.StatusPending, sc.Form.ApprovalStatus)
	assert.Equal(t, fx.Maker, sc.Form.CreatedBy)
	assert.Equal(t, "monthly count", sc.Form.Notes)
	assert.False(t, sc.Form.Done)
	require.Len(t, sc.Items, 1)
	assert.Nil(t, sc.Items[0].InitialStock)

	// Nothing is posted before approval.
	assert.Equal(t, types.NewQuantity(100), fx.Stock(t, fx.Item))

	notices := fx.Notifier.NoticesFor(sc.Form.ID)
	require.Len(t, notices, 1)
	assert.Equal(t, notification.KindApproval, notices[0].Kind)
	assert.Equal(t, fx.Approver, notices[0].RecipientID)
	assert.Empty(t, fx.Notifier.Reminders)

	entries := fx.Store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("negative stock", func(t *testing.T) {
		fx := apptest.New(t)
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -110)))
		assert.True(t, apperror.HasCode(err, apperror.CodeStockWouldGoNegative))
		assert.Equal(t, "Stock can not be minus", messageOf(t, err))

		// The failed create does not consume a number.
		sc, err := fx.Services.StockCorrections.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -100)))
		require.NoError(t, err)
		assert.Equal(t, "SC2101001", sc.Form.Number)
	})

	t.Run("lines of one lot share the balance", func(t *testing.T) {
		fx := apptest.New(t)
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Maker,
			createReq(fx, line(fx.Item.ID, -60), line(fx.Item.ID, -60)))
		assert.True(t, apperror.HasCode(err, apperror.CodeStockWouldGoNegative))
	})

	t.Run("only smallest unit", func(t *testing.T) {
		fx := apptest.New(t)
		req := createReq(fx, line(fx.Item.ID, 1))
		box := decimal.NewFromInt(12)
		req.Items[0].Unit = "box"
		req.Items[0].Converter = &box
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Maker, req)
		assert.True(t, apperror.HasCode(err, apperror.CodeOnlySmallestUnit))
	})

	t.Run("missing fields", func(t *testing.T) {
		fx := apptest.New(t)
		req := createReq(fx)
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Maker, req)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidData))

		req = createReq(fx, line(fx.Item.ID, 1))
		req.Items[0].Quantity = nil
		_, err = fx.Services.StockCorrections.Create(ctx, fx.Maker, req)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidData))
	})

	t.Run("unknown item", func(t *testing.T) {
		fx := apptest.New(t)
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Maker, createReq(fx, line(id.New(), 1)))
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("default branch", func(t *testing.T) {
		fx := apptest.New(t)
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Outsider, createReq(fx, line(fx.Item.ID, 1)))
		assert.Equal(t, "Forbidden - Invalid default branch", messageOf(t, err))
	})

	t.Run("approver lacks permission", func(t *testing.T) {
		fx := apptest.New(t)
		req := createReq(fx, line(fx.Item.ID, 1))
		req.RequestApprovalTo = fx.Outsider
		_, err := fx.Services.StockCorrections.Create(ctx, fx.Maker, req)
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
		assert.Empty(t, fx.Notifier.Notices)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, fx.Maker, sc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	approved, err := svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	assert.True(t, approved.Form.IsApproved())
	assert.Equal(t, fx.Approver, *approved.Form.ApprovalBy)
	assert.Equal(t, types.NewQuantity(90), fx.Stock(t, fx.Item))

	stored, err := svc.FindOne(ctx, sc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Items[0].InitialStock)
	assert.Equal(t, types.NewQuantity(100), *stored.Items[0].InitialStock)
	assert.Equal(t, types.NewQuantity(90), *stored.Items[0].FinalStock)

	entries := fx.Store.JournalEntries()
	require.Len(t, entries, 2)
	debit, credit := entity.JournalTotals(entries)
	assert.True(t, debit.Equal(credit))
	assert.True(t, debit.Equal(types.MustMoney("50000")), debit.String())
	for _, e := range entries {
		if e.AccountID == fx.InventoryAccount {
			assert.Equal(t, entity.SideCredit, e.Side)
		}
	}

	// Approving again is a no-op.
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(90), fx.Stock(t, fx.Item))
	assert.Len(t, fx.Store.JournalEntries(), 2)

	_, err = svc.Reject(ctx, fx.Approver, sc.ID, "late")
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyApproved))
}

func TestApprove_IncreaseDebitsInventory(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, 5), line(fx.Item.ID, 0)))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantity(105), fx.Stock(t, fx.Item))
	entries := fx.Store.JournalEntries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		if e.AccountID == fx.InventoryAccount {
			assert.Equal(t, entity.SideDebit, e.Side)
			assert.True(t, e.Amount.Equal(types.MustMoney("25000")))
		}
	}
}

func TestApprove_StockChangedSinceCreate(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	first, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -80)))
	require.NoError(t, err)
	second, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -80)))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, fx.Approver, first.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, fx.Approver, second.ID)
	require.True(t, apperror.HasCode(err, apperror.CodeStockWouldGoNegative))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, second.Form.Number, appErr.Details["formNumber"])

	stored, err := svc.FindOne(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, form.StatusPending, stored.Form.ApprovalStatus)
	assert.Equal(t, types.NewQuantity(20), fx.Stock(t, fx.Item))
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, fx.Approver, sc.ID, "  wrong count ")
	require.NoError(t, err)
	assert.True(t, rejected.Form.IsRejected())
	assert.Equal(t, "wrong count", *rejected.Form.ApprovalReason)

	_, err = svc.Reject(ctx, fx.Approver, sc.ID, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyRejected))
	assert.Equal(t, "Stock correction already rejected", messageOf(t, err))
	assert.Equal(t, types.NewQuantity(100), fx.Stock(t, fx.Item))
}

func TestCancellation(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)

	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "   ")
	assert.True(t, apperror.HasCode(err, apperror.CodeReasonRequired))

	_, err = svc.RequestCancellation(ctx, fx.Admin, sc.ID, "typo")
	assert.Equal(t, "Forbidden - You are not the maker of the stock correction", messageOf(t, err))

	requested, err := svc.RequestCancellation(ctx, fx.Maker, sc.ID, "typo")
	require.NoError(t, err)
	assert.True(t, requested.Form.IsCancellationPending())
	assert.Equal(t, fx.Approver, *requested.Form.RequestCancellationTo)

	notices := fx.Notifier.NoticesFor(sc.Form.ID)
	require.Len(t, notices, 2)
	assert.Equal(t, notification.KindCancellation, notices[1].Kind)
	assert.Equal(t, "typo", notices[1].Reason)

	key := notification.CancellationKey(sc.Form.ID)
	require.Contains(t, fx.Notifier.Reminders, key)
	assert.Equal(t, notification.DefaultReminderLimit, fx.Notifier.Reminders[key].Limit)
	assert.Equal(t, notification.DefaultReminderInterval, fx.Notifier.Reminders[key].Interval)

	_, err = svc.ApproveCancellation(ctx, fx.Maker, sc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	cancelled, err := svc.ApproveCancellation(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Form.IsCancelled())
	assert.False(t, cancelled.Form.Done)
	assert.Equal(t, types.NewQuantity(100), fx.Stock(t, fx.Item))
	assert.Empty(t, fx.Store.JournalEntries())
	assert.NotContains(t, fx.Notifier.Reminders, key)

	// Cancelled forms accept no further transitions.
	_, err = svc.ApproveCancellation(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeFormCancelled))
	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "again")
	assert.True(t, apperror.HasCode(err, apperror.CodeFormCancelled))
	_, err = svc.RejectCancellation(ctx, fx.Approver, sc.ID, "no")
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyApproved))
}

func TestCancellation_Rejected(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)

	_, err = svc.RejectCancellation(ctx, fx.Approver, sc.ID, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	_, err = svc.RequestCancellation(ctx, fx.Maker, sc.ID, "duplicate")
	require.NoError(t, err)
	kept, err := svc.RejectCancellation(ctx, fx.Approver, sc.ID, "needed")
	require.NoError(t, err)
	assert.Equal(t, form.StatusRejected, *kept.Form.CancellationStatus)
	assert.Equal(t, "needed", *kept.Form.CancellationApprovalReason)
	assert.Contains(t, fx.Notifier.Cancelled, notification.CancellationKey(sc.Form.ID))

	_, err = svc.ApproveCancellation(ctx, fx.Approver, sc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyRejected))
}

func TestCancellation_WouldGoNegative(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	increase, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, 50)))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, increase.ID)
	require.NoError(t, err)

	fx.Clock.Advance(time.Hour)
	decrease, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -140)))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, decrease.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(10), fx.Stock(t, fx.Item))

	_, err = svc.RequestCancellation(ctx, fx.Maker, increase.ID, "wrong")
	assert.True(t, apperror.HasCode(err, apperror.CodeStockWouldGoNegative))
	assert.Equal(t, "Stock will minus if you delete this form", messageOf(t, err))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	require.Equal(t, types.NewQuantity(90), fx.Stock(t, fx.Item))

	update := stock_correction.UpdateRequest{
		RequestApprovalTo: fx.Approver,
		Notes:             "recount",
		Items:             []stock_correction.ItemRequest{line(fx.Item.ID, -20)},
	}

	_, err = svc.Update(ctx, fx.Admin, sc.ID, update)
	assert.Equal(t, "Forbidden - You are not the maker of the stock correction", messageOf(t, err))

	fx.Clock.Advance(time.Minute)
	edited, err := svc.Update(ctx, fx.Maker, sc.ID, update)
	require.NoError(t, err)
	assert.Equal(t, form.StatusPending, edited.Form.ApprovalStatus)
	assert.Nil(t, edited.Form.ApprovalBy)
	assert.Equal(t, sc.Form.Number, edited.Form.Number)
	assert.Equal(t, "recount", edited.Form.Notes)
	assert.Equal(t, fx.Clock.Now(), edited.Form.Date)
	require.Len(t, edited.Items, 1)
	assert.Equal(t, types.NewQuantity(-20), edited.Items[0].Quantity)

	// The previous approval is reversed.
	assert.Equal(t, types.NewQuantity(100), fx.Stock(t, fx.Item))
	assert.Empty(t, fx.Store.JournalEntries())

	notices := fx.Notifier.NoticesFor(sc.Form.ID)
	assert.Equal(t, notification.KindUpdate, notices[len(notices)-1].Kind)
	assert.Contains(t, fx.Notifier.Reminders, notification.UpdateKey(sc.Form.ID))

	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(80), fx.Stock(t, fx.Item))
}

func TestUpdate_FailedRebuildKeepsPostings(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	sc, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, -10)))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, fx.Approver, sc.ID)
	require.NoError(t, err)
	before := fx.Store.JournalEntries()
	require.Len(t, before, 2)

	_, err = svc.Update(ctx, fx.Maker, sc.ID, stock_correction.UpdateRequest{
		RequestApprovalTo: fx.Approver,
		Notes:             "recount",
		Items:             []stock_correction.ItemRequest{line(fx.Item.ID, -200)},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeStockWouldGoNegative))

	assert.Equal(t, types.NewQuantity(90), fx.Stock(t, fx.Item))
	assert.ElementsMatch(t, before, fx.Store.JournalEntries())

	stored, err := svc.FindOne(ctx, sc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Form.IsApproved())
	assert.Equal(t, "monthly count", stored.Form.Notes)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, types.NewQuantity(-10), stored.Items[0].Quantity)
}

func TestFindAll(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, 1)))
		require.NoError(t, err)
		fx.Clock.Advance(time.Minute)
	}

	res, err := svc.FindAll(ctx, domain.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, 2, res.TotalPage)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "SC2101003", res.Items[0].Form.Number)

	res, err = svc.FindAll(ctx, domain.ListQuery{FilterLike: map[string]string{"form.number": "002"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "SC2101002", res.Items[0].Form.Number)

	res, err = svc.FindAll(ctx, domain.ListQuery{FilterLike: map[string]string{"warehouse.name": "main"}})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)

	old := apptest.Start.AddDate(0, -3, 0)
	res, err = svc.FindAll(ctx, domain.ListQuery{DateMax: &old})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestFindAll_EditKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	fx := apptest.New(t)
	svc := fx.Services.StockCorrections

	first, err := svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, 1)))
	require.NoError(t, err)
	fx.Clock.Advance(time.Minute)
	_, err = svc.Create(ctx, fx.Maker, createReq(fx, line(fx.Item.ID, 1)))
	require.NoError(t, err)

	fx.Clock.Advance(time.Minute)
	_, err = svc.Update(ctx, fx.Maker, first.ID, stock_correction.UpdateRequest{
		RequestApprovalTo: fx.Approver,
		Items:             []stock_correction.ItemRequest{line(fx.Item.ID, 2)},
	})
	require.NoError(t, err)

	res, err := svc.FindAll(ctx, domain.ListQuery{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "SC2101002", res.Items[0].Form.Number)
	assert.Equal(t, "SC2101001", res.Items[1].Form.Number)
}
