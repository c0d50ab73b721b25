// Package stock_correction provides the stock correction document: a
// signed adjustment of on-hand quantities in one warehouse, posted against
// the stock difference expense account.
package stock_correction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/numerator"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/posting"
)

const (
	// DocumentType is the formable type and permission label.
	DocumentType = "stock correction"

	JournalFeature = "stock correction"
	JournalSetting = "difference stock expenses"

	NumberPrefix = "SC"
)

// NumberConfig is the numbering scheme, e.g. SC2101001.
var NumberConfig = numerator.DefaultConfig(NumberPrefix)

// StockCorrection is the document header.
type StockCorrection struct {
	ID          id.ID `db:"id" json:"id"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Form  form.Form `db:"form" json:"form"`
	Items []Item    `db:"-" json:"items"`
}

// Item is a correction line. Quantity is the signed change in Unit.
type Item struct {
	ID                id.ID           `db:"id" json:"id"`
	StockCorrectionID id.ID           `db:"stock_correction_id" json:"stockCorrectionId"`
	ItemID            id.ID           `db:"item_id" json:"itemId"`
	Unit              string          `db:"unit" json:"unit"`
	Converter         decimal.Decimal `db:"converter" json:"converter"`
	Quantity          types.Quantity  `db:"quantity" json:"quantity"`
	ExpiryDate        *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	ProductionNumber  *string         `db:"production_number" json:"productionNumber,omitempty"`
	Notes             *string         `db:"notes" json:"notes,omitempty"`
	InitialStock      *types.Quantity `db:"initial_stock" json:"initialStock,omitempty"`
	FinalStock        *types.Quantity `db:"final_stock" json:"finalStock,omitempty"`
}

// BaseQuantity is the signed change in base units.
func (i *Item) BaseQuantity() types.Quantity {
	return i.Quantity.Mul(i.Converter)
}

// Postable implementation

func (sc *StockCorrection) GetForm() *form.Form { return &sc.Form }

func (sc *StockCorrection) GetWarehouseID() id.ID { return sc.WarehouseID }

func (sc *StockCorrection) StockLines() []posting.StockLine {
	lines := make([]posting.StockLine, len(sc.Items))
	for i := range sc.Items {
		it := &sc.Items[i]
		lines[i] = posting.StockLine{
			ItemID:           it.ItemID,
			Quantity:         it.BaseQuantity(),
			ExpiryDate:       it.ExpiryDate,
			ProductionNumber: it.ProductionNumber,
		}
	}
	return lines
}

func (sc *StockCorrection) SetStockSnapshot(i int, initial, final types.Quantity) {
	sc.Items[i].InitialStock = &initial
	sc.Items[i].FinalStock = &final
}

// GenerateMovements posts one ledger entry per non-zero line and a journal
// pair between the item account and the stock difference account.
// A decrease credits the item account, an increase debits it.
func (sc *StockCorrection) GenerateMovements(ctx context.Context, books posting.Books) (*posting.MovementSet, error) {
	movements, err := posting.StockMovements(ctx, books, sc)
	if err != nil {
		return nil, err
	}

	var (
		entries  []entity.JournalEntry
		clearing id.ID
		resolved bool
	)
	for _, ln := range sc.StockLines() {
		if ln.Quantity.IsZero() {
			continue
		}
		if !resolved {
			if clearing, err = books.Account(ctx, JournalFeature, JournalSetting); err != nil {
				return nil, err
			}
			resolved = true
		}

		it, err := books.Item(ctx, ln.ItemID)
		if err != nil {
			return nil, err
		}
		cogs, err := books.UnitCost(ctx, ln.ItemID)
		if err != nil {
			return nil, err
		}
		amount := types.RoundMoney(cogs.Mul(ln.Quantity.Abs().Decimal()))
		if amount.IsZero() {
			continue
		}

		debit, credit := it.ChartOfAccountID, clearing
		if ln.Quantity.IsNegative() {
			debit, credit = clearing, it.ChartOfAccountID
		}
		pair := entity.NewJournalPair(sc.Form.ID, DocumentType, sc.Form.Date, debit, credit, amount)
		for k := range pair {
			pair[k].JournalableType = "item"
			pair[k].JournalableID = id.Ptr(ln.ItemID)
		}
		entries = append(entries, pair[:]...)
	}

	return &posting.MovementSet{Stock: movements, Journal: entries}, nil
}

// ClearSnapshots drops stock snapshots (after an edit).
func (sc *StockCorrection) ClearSnapshots() {
	for i := range sc.Items {
		sc.Items[i].InitialStock = nil
		sc.Items[i].FinalStock = nil
	}
}
