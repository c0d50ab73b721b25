// Package document_repo provides PostgreSQL implementations for document
// repositories. Every document header joins its approval envelope in the
// shared forms table on (formable_type, formable_id).
package document_repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/form"
	"backoffice/internal/infrastructure/storage/postgres"
)

const formsTable = "forms"

var (
	formColumns = postgres.ExtractDBColumns[form.Form]()

	// likeColumns maps filter_like keys to SQL columns.
	likeColumns = map[string]string{
		"form.number":    "f.number",
		"form.notes":     "f.notes",
		"warehouse.name": "w.name",
	}
)

// headerColumns returns the db columns of a header struct without its
// nested form.
func headerColumns[T any]() []string {
	return slices.DeleteFunc(postgres.ExtractDBColumns[T](), func(c string) bool { return c == "form" })
}

// BaseDocumentRepo provides the operations shared by document repositories.
// T is a pointer to a header struct with a `db:"form"` form.Form field.
type BaseDocumentRepo[T any] struct {
	txm          *postgres.TxManager
	tableName    string
	formableType string
	entityName   string
	headerCols   []string
	newFn        func() T
	formOf       func(T) *form.Form
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName, formableType, entityName string,
	headerCols []string,
	newFn func() T,
	formOf func(T) *form.Form,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:          txm,
		tableName:    tableName,
		formableType: formableType,
		entityName:   entityName,
		headerCols:   headerCols,
		newFn:        newFn,
		formOf:       formOf,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// baseSelect selects the header as d, its form as f and its warehouse as w.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	cols := append(postgres.QualifyColumns("d", r.headerCols...), postgres.AliasColumns("f", "form", formColumns...)...)
	return r.Builder().
		Select(cols...).
		From(r.tableName+" d").
		Join(formsTable+" f ON f.formable_id = d.id AND f.formable_type = ?", r.formableType).
		LeftJoin("warehouses w ON w.id = d.warehouse_id")
}

// insert writes the form and the header.
func (r *BaseDocumentRepo[T]) insert(ctx context.Context, doc T) error {
	f := r.formOf(doc)
	if err := r.insertRow(ctx, formsTable, formColumns, f, f.ID); err != nil {
		return err
	}
	return r.insertRow(ctx, r.tableName, r.headerCols, doc, f.FormableID)
}

func (r *BaseDocumentRepo[T]) insertRow(ctx context.Context, table string, columns []string, v any, rowID id.ID) error {
	data := postgres.StructToMap(v)
	filtered := make(map[string]any, len(columns))
	for _, col := range columns {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().Insert(table).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", r.entityName, rowID)
	}
	return nil
}

// get loads one header. lock adds FOR UPDATE on the form row.
func (r *BaseDocumentRepo[T]) get(ctx context.Context, docID id.ID, lock bool) (T, error) {
	entity := r.newFn()
	sql, args, err := r.getQuery(docID, lock).ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), entity, sql, args...); err != nil {
		var zero T
		return zero, postgres.MapError(err, "get", r.entityName, docID)
	}
	return entity, nil
}

func (r *BaseDocumentRepo[T]) getQuery(docID id.ID, lock bool) squirrel.SelectBuilder {
	q := r.baseSelect().Where(squirrel.Eq{"d.id": docID})
	if lock {
		q = q.Suffix("FOR UPDATE OF f")
	}
	return q
}

// SaveForm persists the approval envelope.
func (r *BaseDocumentRepo[T]) SaveForm(ctx context.Context, f *form.Form) error {
	data := postgres.StructToMap(f)
	set := make(map[string]any, len(formColumns))
	for _, col := range formColumns {
		switch col {
		case "id", "created_at", "created_by", "formable_type", "formable_id":
			continue
		}
		set[col] = data[col]
	}

	sql, args, err := r.Builder().
		Update(formsTable).
		SetMap(set).
		Where(squirrel.Eq{"id": f.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "update", "Form", f.ID)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("Form", f.ID)
	}
	return nil
}

// list returns a page of headers matching the filter, newest first.
func (r *BaseDocumentRepo[T]) list(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	q := applyListFilter(r.baseSelect(), filter)
	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return domain.ListResult[T]{}, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return domain.ListResult[T]{}, fmt.Errorf("count: %w", err)
	}

	sql, args, err := page(q, filter).ToSql()
	if err != nil {
		return domain.ListResult[T]{}, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return domain.ListResult[T]{}, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return domain.NewListResult(items, total, filter), nil
}

// page orders newest created first and applies the limit window.
func page(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	return q.OrderBy("f.created_at DESC", "f.number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
}

// applyListFilter adds the date window, the status filter and the OR-combined
// like terms.
func applyListFilter(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	q = q.Where(squirrel.GtOrEq{"f.date": filter.DateFrom}).
		Where(squirrel.Lt{"f.date": filter.DateTo})

	if st := filter.Status; st.Enabled {
		if st.WantsCancelled() {
			q = q.Where(squirrel.Eq{"f.cancellation_status": form.StatusApproved})
		} else {
			q = q.Where(squirrel.Eq{"f.cancellation_status": nil})
		}
		if done, ok := st.DoneValue(); ok {
			q = q.Where(squirrel.Eq{"f.done": done})
		}
		if st.Approval != nil {
			q = q.Where(squirrel.Eq{"f.approval_status": *st.Approval})
		}
	}

	if len(filter.Like) > 0 {
		or := squirrel.Or{}
		keys := make([]string, 0, len(filter.Like))
		for k := range filter.Like {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if col, ok := likeColumns[k]; ok {
				or = append(or, squirrel.ILike{col: "%" + filter.Like[k] + "%"})
			}
		}
		if len(or) > 0 {
			q = q.Where(or)
		}
	}
	return q
}

// setSnapshots updates initial/final stock of lines in one round-trip.
func setSnapshots(ctx context.Context, txm *postgres.TxManager, table string, rows []snapshotRow) error {
	queries := make([]postgres.BatchQuery, 0, len(rows))
	for _, row := range rows {
		queries = append(queries, postgres.BatchQuery{
			SQL:  "UPDATE " + table + " SET initial_stock = $1, final_stock = $2 WHERE id = $3",
			Args: []any{row.initial, row.final, row.id},
		})
	}
	return postgres.NewBatchInserter(txm).ExecuteBatch(ctx, queries)
}

type snapshotRow struct {
	id             id.ID
	initial, final any
}
