package stock

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/pkg/logger"
)

// Ledger provides business operations on the inventory ledger.
// Transactions are managed by the caller (posting engine).
type Ledger struct {
	repo Repository
}

// NewLedger creates a new ledger service.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// CurrentStock sums entries dated on or before date. Lot values are used as
// filters only for the dimensions the item tracks.
func (l *Ledger) CurrentStock(
	ctx context.Context,
	it *item.Item,
	warehouseID id.ID,
	date time.Time,
	expiryDate *time.Time,
	productionNumber *string,
) (types.Quantity, error) {
	q := SumQuery{ItemID: it.ID, WarehouseID: warehouseID, Until: date}
	if it.RequireExpiryDate {
		q.ExpiryDate = expiryDate
	}
	if it.RequireProductionNumber {
		q.ProductionNumber = productionNumber
	}

	qty, err := l.repo.SumUntil(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("sum stock for item %s: %w", it.ID, err)
	}
	return qty, nil
}

// Lock serializes stock reads of the keys for the rest of the transaction.
// Keys must already be sorted.
func (l *Ledger) Lock(ctx context.Context, keys []Key) error {
	for _, k := range keys {
		if err := l.repo.Lock(ctx, k); err != nil {
			return fmt.Errorf("lock stock %s/%s: %w", k.ItemID, k.WarehouseID, err)
		}
	}
	return nil
}

// UnitCost returns the weighted average cost of the item.
func (l *Ledger) UnitCost(ctx context.Context, itemID id.ID) (types.Money, error) {
	cost, err := l.repo.AverageUnitCost(ctx, itemID)
	if err != nil {
		return types.Zero(), fmt.Errorf("average cost for item %s: %w", itemID, err)
	}
	return cost, nil
}

// RecordMovements records ledger entries from a form posting.
func (l *Ledger) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, m := range movements {
		if !m.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		if id.IsNil(m.RecorderID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: recorder_id is required", i))
		}
	}

	if err := l.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"recorder_id", movements[0].RecorderID,
	)

	return nil
}

// ReverseMovements removes all entries of a form.
func (l *Ledger) ReverseMovements(ctx context.Context, recorderID id.ID) error {
	if err := l.repo.DeleteMovementsByRecorder(ctx, recorderID); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}

	logger.Info(ctx, "reversed stock movements", "recorder_id", recorderID)

	return nil
}

// Movements returns the entries of a form.
func (l *Ledger) Movements(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	return l.repo.GetMovementsByRecorder(ctx, recorderID)
}
