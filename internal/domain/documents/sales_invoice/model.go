// Package sales_invoice provides the sales invoice raised against a
// delivery note. Approval issues the goods and books receivable, income,
// tax and cost of sales.
package sales_invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/numerator"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/customer"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/posting"
)

const (
	// DocumentType is the formable type and permission label.
	DocumentType = "sales invoice"

	JournalFeature     = "sales"
	SettingReceivable  = "account receivable"
	SettingIncome      = "sales income"
	SettingTaxPayable  = "income tax payable"
	SettingCostOfSales = "cost of sales"

	NumberPrefix = "SI"
)

// NumberConfig is the numbering scheme, e.g. SI2101001.
var NumberConfig = numerator.DefaultConfig(NumberPrefix)

// SalesInvoice is the document header.
type SalesInvoice struct {
	ID              id.ID `db:"id" json:"id"`
	WarehouseID     id.ID `db:"warehouse_id" json:"warehouseId"`
	CustomerID      id.ID `db:"customer_id" json:"customerId"`
	ReferenceFormID id.ID `db:"reference_form_id" json:"referenceFormId"`

	customer.Snapshot

	DueDate         time.Time       `db:"due_date" json:"dueDate"`
	TypeOfTax       TaxType         `db:"type_of_tax" json:"typeOfTax"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discountPercent"`
	DiscountValue   types.Money     `db:"discount_value" json:"discountValue"`
	Tax             types.Money     `db:"tax" json:"tax"`
	Amount          types.Money     `db:"amount" json:"amount"`

	Form  form.Form `db:"form" json:"form"`
	Items []Item    `db:"-" json:"items"`
}

// Item is an invoiced line. Quantity is in Unit; Converter maps it to base units.
type Item struct {
	ID               id.ID           `db:"id" json:"id"`
	SalesInvoiceID   id.ID           `db:"sales_invoice_id" json:"salesInvoiceId"`
	ItemID           id.ID           `db:"item_id" json:"itemId"`
	ReferenceItemID  id.ID           `db:"reference_item_id" json:"referenceItemId"`
	AllocationID     *id.ID          `db:"allocation_id" json:"allocationId,omitempty"`
	Quantity         types.Quantity  `db:"quantity" json:"quantity"`
	Unit             string          `db:"unit" json:"unit"`
	Converter        decimal.Decimal `db:"converter" json:"converter"`
	Price            types.Money     `db:"price" json:"price"`
	DiscountPercent  decimal.Decimal `db:"discount_percent" json:"discountPercent"`
	DiscountValue    types.Money     `db:"discount_value" json:"discountValue"`
	ExpiryDate       *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	ProductionNumber *string         `db:"production_number" json:"productionNumber,omitempty"`
	InitialStock     *types.Quantity `db:"initial_stock" json:"initialStock,omitempty"`
	FinalStock       *types.Quantity `db:"final_stock" json:"finalStock,omitempty"`
}

// BaseQuantity is the issued quantity in base units.
func (i *Item) BaseQuantity() types.Quantity {
	return i.Quantity.Mul(i.Converter)
}

// Recalculate refreshes tax and amount from the lines.
func (inv *SalesInvoice) Recalculate() Totals {
	t := CalculateTotals(inv.Items, inv.DiscountPercent, inv.DiscountValue, inv.TypeOfTax)
	inv.Tax = t.Tax
	inv.Amount = t.Amount
	return t
}

// Postable implementation

func (inv *SalesInvoice) GetForm() *form.Form { return &inv.Form }

func (inv *SalesInvoice) GetWarehouseID() id.ID { return inv.WarehouseID }

func (inv *SalesInvoice) StockLines() []posting.StockLine {
	lines := make([]posting.StockLine, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		lines[i] = posting.StockLine{
			ItemID:           it.ItemID,
			Quantity:         it.BaseQuantity().Neg(),
			ExpiryDate:       it.ExpiryDate,
			ProductionNumber: it.ProductionNumber,
		}
	}
	return lines
}

func (inv *SalesInvoice) SetStockSnapshot(i int, initial, final types.Quantity) {
	inv.Items[i].InitialStock = &initial
	inv.Items[i].FinalStock = &final
}

// GenerateMovements issues the goods and books:
//
//	debit  receivable   amount
//	credit income       amount - tax
//	credit tax payable  tax (when positive)
//	debit  cost of sales / credit item account, per line at cogs
func (inv *SalesInvoice) GenerateMovements(ctx context.Context, books posting.Books) (*posting.MovementSet, error) {
	movements, err := posting.StockMovements(ctx, books, inv)
	if err != nil {
		return nil, err
	}

	receivable, err := books.Account(ctx, JournalFeature, SettingReceivable)
	if err != nil {
		return nil, err
	}
	income, err := books.Account(ctx, JournalFeature, SettingIncome)
	if err != nil {
		return nil, err
	}
	costOfSales, err := books.Account(ctx, JournalFeature, SettingCostOfSales)
	if err != nil {
		return nil, err
	}

	f := &inv.Form
	entry := func(account id.ID, side entity.JournalSide, amount types.Money) entity.JournalEntry {
		e := entity.NewJournalEntry(f.ID, DocumentType, f.Date, account, side, amount)
		e.JournalableType = "customer"
		e.JournalableID = id.Ptr(inv.CustomerID)
		return e
	}

	var entries []entity.JournalEntry
	if inv.Amount.IsPositive() {
		entries = append(entries,
			entry(receivable, entity.SideDebit, inv.Amount),
			entry(income, entity.SideCredit, inv.Amount.Sub(inv.Tax)),
		)
	}
	if inv.Tax.IsPositive() {
		taxPayable, err := books.Account(ctx, JournalFeature, SettingTaxPayable)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry(taxPayable, entity.SideCredit, inv.Tax))
	}

	for i := range inv.Items {
		line := &inv.Items[i]
		it, err := books.Item(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		cogs, err := books.UnitCost(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		value := types.RoundMoney(cogs.Mul(line.BaseQuantity().Decimal()))
		if !value.IsPositive() {
			continue
		}
		pair := entity.NewJournalPair(f.ID, DocumentType, f.Date, costOfSales, it.ChartOfAccountID, value)
		for k := range pair {
			pair[k].JournalableType = "item"
			pair[k].JournalableID = id.Ptr(line.ItemID)
		}
		entries = append(entries, pair[:]...)
	}

	return &posting.MovementSet{Stock: movements, Journal: entries}, nil
}

// ClearSnapshots drops stock snapshots (after an edit).
func (inv *SalesInvoice) ClearSnapshots() {
	for i := range inv.Items {
		inv.Items[i].InitialStock = nil
		inv.Items[i].FinalStock = nil
	}
}
