package entity

import (
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// RecordType defines movement direction in the inventory ledger.
type RecordType string

const (
	// RecordTypeReceipt increases balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases balance
	RecordTypeExpense RecordType = "expense"
)

// MovementBase contains common fields for ledger and journal rows.
// Rows are immutable: they are deleted and recreated, never updated.
type MovementBase struct {
	// LineID is unique identifier for this row (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the form that produced this row
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the document type (e.g. "stock correction")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// Period is the business date of the form
	Period time.Time `db:"period" json:"period"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementBase creates a new movement base with generated LineID.
func NewMovementBase(recorderID id.ID, recorderType string, period time.Time) MovementBase {
	return MovementBase{
		LineID:       id.New(),
		RecorderID:   recorderID,
		RecorderType: recorderType,
		Period:       period,
		CreatedAt:    time.Now().UTC(),
	}
}

// StockMovement is one inventory ledger entry.
// Quantity is unsigned; RecordType carries the direction.
type StockMovement struct {
	MovementBase

	RecordType RecordType `db:"record_type" json:"recordType"`

	// Dimensions
	WarehouseID      id.ID      `db:"warehouse_id" json:"warehouseId"`
	ItemID           id.ID      `db:"item_id" json:"itemId"`
	ExpiryDate       *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`
	ProductionNumber *string    `db:"production_number" json:"productionNumber,omitempty"`

	// Resources
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`
}

// NewStockMovement builds a ledger entry from a signed delta.
func NewStockMovement(
	recorderID id.ID,
	recorderType string,
	period time.Time,
	warehouseID, itemID id.ID,
	delta types.Quantity,
	unitCost types.Money,
) StockMovement {
	recordType := RecordTypeReceipt
	if delta.IsNegative() {
		recordType = RecordTypeExpense
	}
	return StockMovement{
		MovementBase: NewMovementBase(recorderID, recorderType, period),
		RecordType:   recordType,
		WarehouseID:  warehouseID,
		ItemID:       itemID,
		Quantity:     delta.Abs(),
		UnitCost:     unitCost,
	}
}

// SignedQuantity returns quantity with sign based on record type.
// Receipt = positive, Expense = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
