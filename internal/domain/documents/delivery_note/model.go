// Package delivery_note provides the delivery note, the reference document
// a sales invoice is raised against. Only the parts an invoice consumes are
// modelled here.
package delivery_note

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/form"
)

// DocumentType is the formable type of delivery notes.
const DocumentType = "delivery note"

// DeliveryNote is a shipped delivery awaiting invoicing.
type DeliveryNote struct {
	ID          id.ID `db:"id" json:"id"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	CustomerID  id.ID `db:"customer_id" json:"customerId"`

	Form  form.Form `db:"form" json:"form"`
	Items []Item    `db:"-" json:"items"`
}

// Item is a delivered line.
type Item struct {
	ID       id.ID          `db:"id" json:"id"`
	ItemID   id.ID          `db:"item_id" json:"itemId"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Unit     string         `db:"unit" json:"unit"`
}

// Repository defines the persistence operations invoices need.
type Repository interface {
	// GetPendingForUpdate locks the delivery note whose form is formID and
	// is not done yet. It returns NotFound otherwise.
	GetPendingForUpdate(ctx context.Context, formID id.ID) (*DeliveryNote, error)

	// SetDone flips the done flag of the delivery note form.
	SetDone(ctx context.Context, formID id.ID, done bool) error
}

// ErrReferenceNotPending is the message for a missing or consumed reference.
const ErrReferenceNotPending = "Form reference without done status not found"
