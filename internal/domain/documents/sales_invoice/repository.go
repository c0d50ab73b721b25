package sales_invoice

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/form"
)

// Repository defines persistence for sales invoices.
type Repository interface {
	// Create inserts the form, the header and the lines.
	Create(ctx context.Context, inv *SalesInvoice) error

	GetByID(ctx context.Context, docID id.ID) (*SalesInvoice, error)

	// GetForUpdate loads the document and locks its form row.
	GetForUpdate(ctx context.Context, docID id.ID) (*SalesInvoice, error)

	// Save persists header amounts and line prices of an edited invoice.
	Save(ctx context.Context, inv *SalesInvoice) error

	SaveForm(ctx context.Context, f *form.Form) error
	SaveSnapshots(ctx context.Context, inv *SalesInvoice) error

	// List returns documents matching the filter, newest first.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*SalesInvoice], error)
}
