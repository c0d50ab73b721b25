package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	itemTable     = "items"
	itemUnitTable = "item_units"
)

// ItemRepo implements item.Repository. Units live in their own table.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*item.Item](
			txm,
			itemTable,
			"Item",
			postgres.ExtractDBColumns[item.Item](),
			func() *item.Item { return &item.Item{} },
		),
	}
}

// GetByID retrieves the item with its units, smallest first.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	it, err := r.BaseCatalogRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.unitsQuery(itemID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &it.Units, sql, args...); err != nil {
		return nil, fmt.Errorf("select item units: %w", err)
	}
	return it, nil
}

// Create inserts the item and its units.
func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseCatalogRepo.Create(ctx, it); err != nil {
			return err
		}
		if len(it.Units) == 0 {
			return nil
		}

		sql, args, err := r.unitsInsert(it).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return postgres.MapError(err, "insert", "Item unit", it.ID)
		}
		return nil
	})
}

func (r *ItemRepo) unitsQuery(itemID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select("label", "name", "converter").
		From(itemUnitTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("converter", "label")
}

func (r *ItemRepo) unitsInsert(it *item.Item) squirrel.InsertBuilder {
	q := r.Builder().Insert(itemUnitTable).Columns("item_id", "label", "name", "converter")
	for _, u := range it.Units {
		q = q.Values(it.ID, u.Label, u.Name, u.Converter)
	}
	return q
}

var _ item.Repository = (*ItemRepo)(nil)
