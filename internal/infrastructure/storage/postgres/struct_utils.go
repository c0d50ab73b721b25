package postgres

import (
	"fmt"
	"reflect"
	"sync"
)

// column is a db-tagged field reached through an index path, so fields of
// embedded structs resolve to the outer value.
type column struct {
	name  string
	index []int
}

// plans caches the column list of each struct type.
var plans sync.Map // reflect.Type -> []column

func planOf(t reflect.Type) []column {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := plans.Load(t); ok {
		return cached.([]column)
	}
	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	plans.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				cols = append(cols, collectColumns(ft, path)...)
			}
			continue
		}

		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: path})
	}
	return cols
}

// ExtractDBColumns lists the "db" tags of T in declaration order, embedded
// structs included:
//
//	ExtractDBColumns[warehouse.Warehouse]() // id, branch_id, code, name
func ExtractDBColumns[T any]() []string {
	cols := planOf(reflect.TypeFor[T]())
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// StructToMap maps the db-tagged fields of v to their values. Fields behind
// a nil embedded pointer are left out. Non-structs give nil.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := planOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		fv, err := rv.FieldByIndexErr(c.index)
		if err != nil {
			continue
		}
		res[c.name] = fv.Interface()
	}
	return res
}

// AliasColumns qualifies columns with a table alias and names them for a
// nested struct field, so scany can scan a join into it:
//
//	AliasColumns("f", "form", "number") // f.number AS "form.number"
func AliasColumns(alias, field string, columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = fmt.Sprintf(`%s.%s AS "%s.%s"`, alias, c, field, c)
	}
	return out
}

// QualifyColumns prefixes columns with a table alias.
func QualifyColumns(alias string, columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}
