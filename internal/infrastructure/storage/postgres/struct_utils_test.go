package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/form"
)

type mockCatalog struct {
	entity.BaseEntity
	Code  string   `db:"code" json:"code"`
	Name  string   `db:"name" json:"name"`
	Units []string `db:"-"`
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()
	assert.Equal(t, []string{"id", "code", "name"}, cols)

	formCols := ExtractDBColumns[form.Form]()
	for _, expected := range []string{"id", "created_at", "created_by", "number", "approval_status", "cancellation_status"} {
		assert.Contains(t, formCols, expected)
	}
}

func TestStructToMap_Embedded(t *testing.T) {
	cat := mockCatalog{
		BaseEntity: entity.BaseEntity{ID: id.New()},
		Code:       "WH1",
		Name:       "Main Warehouse",
	}

	m := StructToMap(cat)

	assert.Len(t, m, 3)
	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, "WH1", m["code"])
	assert.Equal(t, "Main Warehouse", m["name"])

	doc := entity.NewBaseDocument(id.New(), time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC))
	dm := StructToMap(&doc)
	assert.Equal(t, doc.ID, dm["id"])
	assert.Equal(t, doc.CreatedBy, dm["created_by"])
}

func TestAliasColumns(t *testing.T) {
	assert.Equal(t,
		[]string{`f.number AS "form.number"`, `f.done AS "form.done"`},
		AliasColumns("f", "form", "number", "done"),
	)
	assert.Equal(t, []string{"sc.id", "sc.warehouse_id"}, QualifyColumns("sc", "id", "warehouse_id"))
	assert.Nil(t, StructToMap(42))
}

type withPointer struct {
	*entity.BaseEntity
	Code string `db:"code"`
}

func TestStructToMap_NilEmbeddedPointer(t *testing.T) {
	assert.Equal(t, []string{"id", "code"}, ExtractDBColumns[withPointer]())
	assert.Equal(t, map[string]any{"code": "X"}, StructToMap(withPointer{Code: "X"}))
}
