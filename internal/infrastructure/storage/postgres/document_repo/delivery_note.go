package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/documents/delivery_note"
	"backoffice/internal/domain/form"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	deliveryNoteTable     = "delivery_notes"
	deliveryNoteItemTable = "delivery_note_items"
)

// DeliveryNoteRepo implements delivery_note.Repository.
type DeliveryNoteRepo struct {
	*BaseDocumentRepo[*delivery_note.DeliveryNote]
}

// NewDeliveryNoteRepo creates a new delivery note repository.
func NewDeliveryNoteRepo(txm *postgres.TxManager) *DeliveryNoteRepo {
	return &DeliveryNoteRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			deliveryNoteTable,
			delivery_note.DocumentType,
			"Delivery note",
			headerColumns[delivery_note.DeliveryNote](),
			func() *delivery_note.DeliveryNote { return &delivery_note.DeliveryNote{} },
			func(dn *delivery_note.DeliveryNote) *form.Form { return &dn.Form },
		),
	}
}

// GetPendingForUpdate locks the delivery note of formID while its form is
// not done.
func (r *DeliveryNoteRepo) GetPendingForUpdate(ctx context.Context, formID id.ID) (*delivery_note.DeliveryNote, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"f.id": formID, "f.done": false}).
		Suffix("FOR UPDATE OF f").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	dn := &delivery_note.DeliveryNote{}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dn, sql, args...); err != nil {
		return nil, postgres.MapError(err, "get", "Delivery note", formID)
	}

	sql, args, err = r.Builder().Select("id", "item_id", "quantity", "unit").
		From(deliveryNoteItemTable).
		Where(squirrel.Eq{"delivery_note_id": dn.ID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &dn.Items, sql, args...); err != nil {
		return nil, fmt.Errorf("select delivery note items: %w", err)
	}
	return dn, nil
}

// SetDone flips the done flag of the delivery note form.
func (r *DeliveryNoteRepo) SetDone(ctx context.Context, formID id.ID, done bool) error {
	sql, args, err := r.Builder().Update(formsTable).
		Set("done", done).
		Where(squirrel.Eq{"id": formID, "formable_type": delivery_note.DocumentType}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "update", "Delivery note", formID)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("Delivery note", formID)
	}
	return nil
}

var _ delivery_note.Repository = (*DeliveryNoteRepo)(nil)
