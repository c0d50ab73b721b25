package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

var period = time.Date(2021, time.January, 10, 9, 0, 0, 0, time.UTC)

func movement(it *item.Item, warehouseID id.ID, at time.Time, delta int64) entity.StockMovement {
	return entity.NewStockMovement(id.New(), "stock correction", at, warehouseID, it.ID, types.NewQuantity(delta), types.Zero())
}

func TestCurrentStock_EmptyLedger(t *testing.T) {
	ledger := stock.NewLedger(memory.NewStore().Stock())
	it := &item.Item{BaseEntity: entity.NewBaseEntity()}

	qty, err := ledger.CurrentStock(context.Background(), it, id.New(), period, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), qty)
}

func TestCurrentStock_IncludesEntriesOnDate(t *testing.T) {
	ctx := context.Background()
	ledger := stock.NewLedger(memory.NewStore().Stock())
	it := &item.Item{BaseEntity: entity.NewBaseEntity()}
	warehouseID := id.New()

	require.NoError(t, ledger.RecordMovements(ctx, []entity.StockMovement{
		movement(it, warehouseID, period.Add(-time.Hour), 100),
		movement(it, warehouseID, period, -10),
		movement(it, id.New(), period, 7),
	}))

	tests := []struct {
		name  string
		until time.Time
		want  types.Quantity
	}{
		{"on the entry date", period, types.NewQuantity(90)},
		{"just before", period.Add(-time.Nanosecond), types.NewQuantity(100)},
		{"before any entry", period.Add(-2 * time.Hour), types.Quantity(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := ledger.CurrentStock(ctx, it, warehouseID, tt.until, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, qty)
		})
	}
}

func TestCurrentStock_LotFiltersFollowItem(t *testing.T) {
	ctx := context.Background()
	ledger := stock.NewLedger(memory.NewStore().Stock())
	warehouseID := id.New()
	expiry := period.AddDate(1, 0, 0)
	other := period.AddDate(2, 0, 0)

	it := &item.Item{BaseEntity: entity.NewBaseEntity(), RequireExpiryDate: true}
	a := movement(it, warehouseID, period, 30)
	a.ExpiryDate = &expiry
	b := movement(it, warehouseID, period, 20)
	b.ExpiryDate = &other
	require.NoError(t, ledger.RecordMovements(ctx, []entity.StockMovement{a, b}))

	qty, err := ledger.CurrentStock(ctx, it, warehouseID, period, &expiry, nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(30), qty)

	// an untracked dimension is not a filter
	plain := &item.Item{BaseEntity: it.BaseEntity}
	qty, err = ledger.CurrentStock(ctx, plain, warehouseID, period, &expiry, nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(50), qty)
}
