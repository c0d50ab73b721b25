package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/form"
	"backoffice/internal/infrastructure/storage/postgres"
)

// FormRepo reads approval envelopes regardless of document type.
type FormRepo struct {
	txm *postgres.TxManager
}

// NewFormRepo creates a form repository.
func NewFormRepo(txm *postgres.TxManager) *FormRepo {
	return &FormRepo{txm: txm}
}

// GetForm loads the form with formID.
func (r *FormRepo) GetForm(ctx context.Context, formID id.ID) (*form.Form, error) {
	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(formColumns...).
		From(formsTable).
		Where("id = ?", formID).
		ToSql()
	if err != nil {
		return nil, err
	}

	var f form.Form
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &f, query, args...); err != nil {
		return nil, postgres.MapError(err, "get form", "Form", formID)
	}
	return &f, nil
}
