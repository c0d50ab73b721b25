package document_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/form"
)

var (
	dateFrom = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	dateTo   = time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC)
)

func formSelect() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).Select("f.id").From("forms f")
}

func TestApplyListFilter(t *testing.T) {
	const window = "SELECT f.id FROM forms f WHERE f.date >= $1 AND f.date < $2"

	tests := []struct {
		name     string
		status   string
		like     map[string]string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filter",
			wantSQL:  window,
			wantArgs: []any{},
		},
		{
			name:     "cancelled",
			status:   "cancellationApproved;null",
			wantSQL:  window + " AND f.cancellation_status = $3",
			wantArgs: []any{form.StatusApproved},
		},
		{
			name:     "pending and approved",
			status:   "pending;approvalApproved",
			wantSQL:  window + " AND f.cancellation_status IS NULL AND f.done = $3 AND f.approval_status = $4",
			wantArgs: []any{false, form.StatusApproved},
		},
		{
			name:     "done any approval",
			status:   "done;null",
			wantSQL:  window + " AND f.cancellation_status IS NULL AND f.done = $3",
			wantArgs: []any{true},
		},
		{
			name:     "like terms are OR-combined",
			like:     map[string]string{"form.number": "001", "warehouse.name": "main"},
			wantSQL:  window + " AND (f.number ILIKE $3 OR w.name ILIKE $4)",
			wantArgs: []any{"%001%", "%main%"},
		},
		{
			name:     "unknown like key is ignored",
			like:     map[string]string{"form.secret": "x"},
			wantSQL:  window,
			wantArgs: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := form.ParseFilter(tt.status)
			require.NoError(t, err)
			filter := domain.ListFilter{DateFrom: dateFrom, DateTo: dateTo, Status: status, Like: tt.like}

			sql, args, err := applyListFilter(formSelect(), filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, append([]any{dateFrom, dateTo}, tt.wantArgs...), args)
		})
	}
}

func TestPage_OrdersByCreation(t *testing.T) {
	sql, _, err := page(formSelect(), domain.ListFilter{Limit: 10, Offset: 20}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT f.id FROM forms f ORDER BY f.created_at DESC, f.number DESC LIMIT 10 OFFSET 20", sql)
}

func TestGetQuery(t *testing.T) {
	repo := NewStockCorrectionRepo(nil)
	docID := id.New()

	sql, args, err := repo.getQuery(docID, true).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "SELECT d."), sql)
	assert.Contains(t, sql, "FROM stock_corrections d JOIN forms f ON f.formable_id = d.id AND f.formable_type = $1")
	assert.True(t, strings.HasSuffix(sql, "WHERE d.id = $2 FOR UPDATE OF f"), sql)
	assert.Equal(t, []any{stock_correction.DocumentType, docID}, args)

	sql, _, err = repo.getQuery(docID, false).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "WHERE d.id = $2"), sql)
}
