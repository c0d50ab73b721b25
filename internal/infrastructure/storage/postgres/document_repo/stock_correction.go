package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/form"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	stockCorrectionTable     = "stock_corrections"
	stockCorrectionItemTable = "stock_correction_items"
)

var stockCorrectionItemColumns = postgres.ExtractDBColumns[stock_correction.Item]()

// StockCorrectionRepo implements stock_correction.Repository.
type StockCorrectionRepo struct {
	*BaseDocumentRepo[*stock_correction.StockCorrection]
}

// NewStockCorrectionRepo creates a new stock correction repository.
func NewStockCorrectionRepo(txm *postgres.TxManager) *StockCorrectionRepo {
	return &StockCorrectionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			stockCorrectionTable,
			stock_correction.DocumentType,
			"Stock correction",
			headerColumns[stock_correction.StockCorrection](),
			func() *stock_correction.StockCorrection { return &stock_correction.StockCorrection{} },
			func(sc *stock_correction.StockCorrection) *form.Form { return &sc.Form },
		),
	}
}

// Create inserts the form, the header and the lines.
func (r *StockCorrectionRepo) Create(ctx context.Context, sc *stock_correction.StockCorrection) error {
	if err := r.insert(ctx, sc); err != nil {
		return err
	}
	return r.insertItems(ctx, sc)
}

// GetByID loads the document with its lines.
func (r *StockCorrectionRepo) GetByID(ctx context.Context, docID id.ID) (*stock_correction.StockCorrection, error) {
	return r.load(ctx, docID, false)
}

// GetForUpdate loads the document and locks its form row.
func (r *StockCorrectionRepo) GetForUpdate(ctx context.Context, docID id.ID) (*stock_correction.StockCorrection, error) {
	return r.load(ctx, docID, true)
}

func (r *StockCorrectionRepo) load(ctx context.Context, docID id.ID, lock bool) (*stock_correction.StockCorrection, error) {
	sc, err := r.get(ctx, docID, lock)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*stock_correction.StockCorrection{sc}); err != nil {
		return nil, err
	}
	return sc, nil
}

// SaveSnapshots persists initial/final stock of every line.
func (r *StockCorrectionRepo) SaveSnapshots(ctx context.Context, sc *stock_correction.StockCorrection) error {
	rows := make([]snapshotRow, len(sc.Items))
	for i, it := range sc.Items {
		rows[i] = snapshotRow{id: it.ID, initial: it.InitialStock, final: it.FinalStock}
	}
	return setSnapshots(ctx, r.txm, stockCorrectionItemTable, rows)
}

// ReplaceItems deletes the lines and inserts sc.Items.
func (r *StockCorrectionRepo) ReplaceItems(ctx context.Context, sc *stock_correction.StockCorrection) error {
	sql, args, err := r.Builder().Delete(stockCorrectionItemTable).
		Where(squirrel.Eq{"stock_correction_id": sc.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete stock correction items: %w", err)
	}
	return r.insertItems(ctx, sc)
}

// List returns documents matching the filter, newest first.
func (r *StockCorrectionRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*stock_correction.StockCorrection], error) {
	res, err := r.list(ctx, filter)
	if err != nil {
		return res, err
	}
	return res, r.loadItems(ctx, res.Items)
}

func (r *StockCorrectionRepo) insertItems(ctx context.Context, sc *stock_correction.StockCorrection) error {
	if len(sc.Items) == 0 {
		return nil
	}
	q := r.Builder().Insert(stockCorrectionItemTable).Columns(stockCorrectionItemColumns...)
	for i := range sc.Items {
		data := postgres.StructToMap(&sc.Items[i])
		values := make([]any, len(stockCorrectionItemColumns))
		for k, col := range stockCorrectionItemColumns {
			values[k] = data[col]
		}
		q = q.Values(values...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", "Stock correction item", sc.ID)
	}
	return nil
}

// loadItems fills the lines of docs with one query.
func (r *StockCorrectionRepo) loadItems(ctx context.Context, docs []*stock_correction.StockCorrection) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[id.ID]*stock_correction.StockCorrection, len(docs))
	ids := make([]id.ID, 0, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	sql, args, err := r.Builder().Select(stockCorrectionItemColumns...).
		From(stockCorrectionItemTable).
		Where(squirrel.Eq{"stock_correction_id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var items []stock_correction.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return fmt.Errorf("select stock correction items: %w", err)
	}
	for _, it := range items {
		d := byID[it.StockCorrectionID]
		d.Items = append(d.Items, it)
	}
	return nil
}

var _ stock_correction.Repository = (*StockCorrectionRepo)(nil)
