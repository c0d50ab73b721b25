package stock_correction

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/form"
)

// Repository defines persistence for stock corrections.
type Repository interface {
	// Create inserts the form, the header and the lines.
	Create(ctx context.Context, sc *StockCorrection) error

	// GetByID loads the document with its lines.
	GetByID(ctx context.Context, docID id.ID) (*StockCorrection, error)

	// GetForUpdate loads the document and locks its form row.
	GetForUpdate(ctx context.Context, docID id.ID) (*StockCorrection, error)

	// SaveForm persists the approval envelope.
	SaveForm(ctx context.Context, f *form.Form) error

	// SaveSnapshots persists initial/final stock of every line.
	SaveSnapshots(ctx context.Context, sc *StockCorrection) error

	// ReplaceItems deletes the lines and inserts sc.Items.
	ReplaceItems(ctx context.Context, sc *StockCorrection) error

	// List returns documents matching the filter, newest first.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*StockCorrection], error)
}
