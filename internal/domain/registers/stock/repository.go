// Package stock provides the inventory ledger.
package stock

import (
	"context"
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Key is the (item, warehouse) pair stock reads are serialized on.
type Key struct {
	ItemID      id.ID
	WarehouseID id.ID
}

// Less orders keys so locks are always taken in the same order.
func (k Key) Less(o Key) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID.String() < o.ItemID.String()
	}
	return k.WarehouseID.String() < o.WarehouseID.String()
}

// SumQuery selects ledger entries for a balance.
// Lot fields are filters only when non-nil.
type SumQuery struct {
	ItemID           id.ID
	WarehouseID      id.ID
	Until            time.Time
	ExpiryDate       *time.Time
	ProductionNumber *string
}

// Repository defines operations for the inventory ledger.
type Repository interface {
	// SumUntil returns the signed quantity of entries with period <= Until
	// matching the query. Zero when there are none.
	SumUntil(ctx context.Context, q SumQuery) (types.Quantity, error)

	// Lock takes a transaction-scoped lock on key.
	Lock(ctx context.Context, key Key) error

	// CreateMovements batch inserts entries (used during posting).
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// DeleteMovementsByRecorder removes all entries a form produced.
	DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error

	// GetMovementsByRecorder retrieves all entries a form produced.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	// AverageUnitCost is the quantity weighted unit cost of the item's
	// receipt entries. Zero without inbound history.
	AverageUnitCost(ctx context.Context, itemID id.ID) (types.Money, error)
}
