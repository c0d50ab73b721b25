package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/form"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	salesInvoiceTable     = "sales_invoices"
	salesInvoiceItemTable = "sales_invoice_items"
)

var salesInvoiceItemColumns = postgres.ExtractDBColumns[sales_invoice.Item]()

// SalesInvoiceRepo implements sales_invoice.Repository.
type SalesInvoiceRepo struct {
	*BaseDocumentRepo[*sales_invoice.SalesInvoice]
}

// NewSalesInvoiceRepo creates a new sales invoice repository.
func NewSalesInvoiceRepo(txm *postgres.TxManager) *SalesInvoiceRepo {
	return &SalesInvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			salesInvoiceTable,
			sales_invoice.DocumentType,
			"Sales invoice",
			headerColumns[sales_invoice.SalesInvoice](),
			func() *sales_invoice.SalesInvoice { return &sales_invoice.SalesInvoice{} },
			func(inv *sales_invoice.SalesInvoice) *form.Form { return &inv.Form },
		),
	}
}

// Create inserts the form, the header and the lines.
func (r *SalesInvoiceRepo) Create(ctx context.Context, inv *sales_invoice.SalesInvoice) error {
	if err := r.insert(ctx, inv); err != nil {
		return err
	}
	if len(inv.Items) == 0 {
		return nil
	}

	q := r.Builder().Insert(salesInvoiceItemTable).Columns(salesInvoiceItemColumns...)
	for i := range inv.Items {
		data := postgres.StructToMap(&inv.Items[i])
		values := make([]any, len(salesInvoiceItemColumns))
		for k, col := range salesInvoiceItemColumns {
			values[k] = data[col]
		}
		q = q.Values(values...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", "Sales invoice item", inv.ID)
	}
	return nil
}

func (r *SalesInvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error) {
	return r.load(ctx, docID, false)
}

// GetForUpdate loads the document and locks its form row.
func (r *SalesInvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error) {
	return r.load(ctx, docID, true)
}

func (r *SalesInvoiceRepo) load(ctx context.Context, docID id.ID, lock bool) (*sales_invoice.SalesInvoice, error) {
	inv, err := r.get(ctx, docID, lock)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*sales_invoice.SalesInvoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// Save persists header amounts and line prices of an edited invoice.
func (r *SalesInvoiceRepo) Save(ctx context.Context, inv *sales_invoice.SalesInvoice) error {
	queries := make([]postgres.BatchQuery, 0, len(inv.Items)+1)
	queries = append(queries, postgres.BatchQuery{
		SQL: `UPDATE ` + salesInvoiceTable + `
			SET due_date = $1, type_of_tax = $2, discount_percent = $3, discount_value = $4, tax = $5, amount = $6
			WHERE id = $7`,
		Args: []any{inv.DueDate, string(inv.TypeOfTax), inv.DiscountPercent, inv.DiscountValue, inv.Tax, inv.Amount, inv.ID},
	})
	for _, it := range inv.Items {
		queries = append(queries, postgres.BatchQuery{
			SQL: `UPDATE ` + salesInvoiceItemTable + `
				SET price = $1, discount_percent = $2, discount_value = $3, initial_stock = $4, final_stock = $5
				WHERE id = $6`,
			Args: []any{it.Price, it.DiscountPercent, it.DiscountValue, it.InitialStock, it.FinalStock, it.ID},
		})
	}
	return postgres.NewBatchInserter(r.txm).ExecuteBatch(ctx, queries)
}

// SaveSnapshots persists initial/final stock of every line.
func (r *SalesInvoiceRepo) SaveSnapshots(ctx context.Context, inv *sales_invoice.SalesInvoice) error {
	rows := make([]snapshotRow, len(inv.Items))
	for i, it := range inv.Items {
		rows[i] = snapshotRow{id: it.ID, initial: it.InitialStock, final: it.FinalStock}
	}
	return setSnapshots(ctx, r.txm, salesInvoiceItemTable, rows)
}

// List returns documents matching the filter, newest first.
func (r *SalesInvoiceRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sales_invoice.SalesInvoice], error) {
	res, err := r.list(ctx, filter)
	if err != nil {
		return res, err
	}
	return res, r.loadItems(ctx, res.Items)
}

func (r *SalesInvoiceRepo) loadItems(ctx context.Context, docs []*sales_invoice.SalesInvoice) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[id.ID]*sales_invoice.SalesInvoice, len(docs))
	ids := make([]id.ID, 0, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	sql, args, err := r.Builder().Select(salesInvoiceItemColumns...).
		From(salesInvoiceItemTable).
		Where(squirrel.Eq{"sales_invoice_id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var items []sales_invoice.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return fmt.Errorf("select sales invoice items: %w", err)
	}
	for _, it := range items {
		d := byID[it.SalesInvoiceID]
		d.Items = append(d.Items, it)
	}
	return nil
}

var _ sales_invoice.Repository = (*SalesInvoiceRepo)(nil)
