package catalog_repo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/catalogs/item"
)

type testRow struct {
	ID    id.ID  `db:"id"`
	Name  string `db:"name"`
	Extra string `db:"extra"`
}

func newTestRepo() *BaseCatalogRepo[*testRow] {
	return NewBaseCatalogRepo[*testRow](nil, "test_table", "Test", []string{"id", "name"}, func() *testRow { return &testRow{} })
}

func TestBaseCatalogRepo_InsertKeepsTableColumns(t *testing.T) {
	row := &testRow{ID: id.New(), Name: "Main", Extra: "dropped"}

	q, err := newTestRepo().insertQuery(row)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO test_table (id,name) VALUES ($1,$2)", sql)
	assert.Equal(t, []any{row.ID, "Main"}, args)
}

func TestBaseCatalogRepo_InsertWithoutTags(t *testing.T) {
	repo := NewBaseCatalogRepo[*struct{ Name string }](nil, "test_table", "Test", nil, nil)
	_, err := repo.insertQuery(&struct{ Name string }{Name: "x"})
	assert.Error(t, err)
}

func TestBaseCatalogRepo_GetQuery(t *testing.T) {
	entityID := id.New()

	sql, args, err := newTestRepo().getQuery(entityID).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM test_table WHERE id = $1", sql)
	assert.Equal(t, []any{entityID}, args)
}

func TestItemRepo_Units(t *testing.T) {
	repo := NewItemRepo(nil)
	it := &item.Item{
		BaseEntity: entity.NewBaseEntity(),
		Units: []item.Unit{
			{Label: "pcs", Name: "Piece", Converter: decimal.NewFromInt(1)},
			{Label: "box", Name: "Box", Converter: decimal.NewFromInt(12)},
		},
	}

	sql, args, err := repo.unitsQuery(it.ID).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT label, name, converter FROM item_units WHERE item_id = $1 ORDER BY converter, label", sql)
	assert.Equal(t, []any{it.ID}, args)

	sql, args, err = repo.unitsInsert(it).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO item_units (item_id,label,name,converter) VALUES ($1,$2,$3,$4),($5,$6,$7,$8)", sql)
	assert.Len(t, args, 8)
	assert.Equal(t, "box", args[5])
}
