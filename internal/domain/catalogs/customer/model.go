// Package customer provides the Customer catalog.
package customer

import (
	"context"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// Customer is a business partner documents are issued to.
type Customer struct {
	entity.BaseEntity

	Code    string  `db:"code" json:"code"`
	Name    string  `db:"name" json:"name"`
	Address *string `db:"address" json:"address,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Email   *string `db:"email" json:"email,omitempty"`
}

// Snapshot is the copy of customer data stored on a document.
// Absent values are empty strings.
type Snapshot struct {
	Name    string `db:"customer_name" json:"customerName"`
	Address string `db:"customer_address" json:"customerAddress"`
	Phone   string `db:"customer_phone" json:"customerPhone"`
}

// Snapshot copies the customer data for a document.
func (c *Customer) Snapshot() Snapshot {
	return Snapshot{
		Name:    c.Name,
		Address: deref(c.Address),
		Phone:   deref(c.Phone),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Repository defines the interface for Customer persistence.
type Repository interface {
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
}
