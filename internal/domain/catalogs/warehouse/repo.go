package warehouse

import (
	"context"

	"backoffice/internal/core/id"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	// GetByID returns NotFound when the warehouse does not exist.
	GetByID(ctx context.Context, warehouseID id.ID) (*Warehouse, error)
}
