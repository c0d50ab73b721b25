// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "inventories"

var stockColumns = []string{
	"line_id", "recorder_id", "recorder_type", "period", "record_type",
	"warehouse_id", "item_id", "expiry_date", "production_number",
	"quantity", "unit_cost", "created_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// SumUntil returns the signed balance of matching entries.
func (r *StockRepo) SumUntil(ctx context.Context, q stock.SumQuery) (types.Quantity, error) {
	sql, args, err := r.sumQuery(q).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var balanceScaled int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&balanceScaled); err != nil {
		return 0, fmt.Errorf("sum stock: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(balanceScaled), nil
}

// sumQuery filters on the lot only for the dimensions set in q.
func (r *StockRepo) sumQuery(q stock.SumQuery) squirrel.SelectBuilder {
	sb := r.builder.
		Select("COALESCE(SUM(CASE WHEN record_type = 'receipt' THEN quantity ELSE -quantity END), 0)").
		From(stockMovementsTable).
		Where(squirrel.Eq{"item_id": q.ItemID, "warehouse_id": q.WarehouseID}).
		Where(squirrel.LtOrEq{"period": q.Until})

	if q.ExpiryDate != nil {
		sb = sb.Where(squirrel.Eq{"expiry_date": *q.ExpiryDate})
	}
	if q.ProductionNumber != nil {
		sb = sb.Where(squirrel.Eq{"production_number": *q.ProductionNumber})
	}
	return sb
}

// Lock takes a transaction-scoped advisory lock on the (item, warehouse) pair.
func (r *StockRepo) Lock(ctx context.Context, key stock.Key) error {
	_, err := r.txm.GetQuerier(ctx).Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
		key.ItemID.String()+"/"+key.WarehouseID.String(),
	)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// CreateMovements batch inserts movements with COPY.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.LineID, m.RecorderID, m.RecorderType, m.Period, string(m.RecordType),
			m.WarehouseID, m.ItemID, m.ExpiryDate, m.ProductionNumber,
			m.Quantity.Int64Scaled(), postgres.Numeric(m.UnitCost), m.CreatedAt,
		})
	}
	if _, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, stockMovementsTable, stockColumns, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	return nil
}

// DeleteMovementsByRecorder removes every movement of a form.
func (r *StockRepo) DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error {
	sql, args, err := r.builder.Delete(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}
	return nil
}

// GetMovementsByRecorder retrieves movements for a form.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	sql, args, err := r.builder.Select(stockColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// AverageUnitCost is the receipt-weighted unit cost of the item.
func (r *StockRepo) AverageUnitCost(ctx context.Context, itemID id.ID) (types.Money, error) {
	sql, args, err := r.builder.
		Select("COALESCE(SUM(quantity * unit_cost) / NULLIF(SUM(quantity), 0), 0)").
		From(stockMovementsTable).
		Where(squirrel.Eq{"item_id": itemID, "record_type": entity.RecordTypeReceipt}).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var cost decimal.Decimal
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&cost); err != nil {
		return types.Zero(), fmt.Errorf("average unit cost: %w", err)
	}
	return cost, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
