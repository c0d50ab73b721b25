// Package item provides the Item catalog: stocked goods with their units
// of measure and lot tracking requirements.
package item

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// Unit is a unit of measure of an item. Converter is the number of base
// units in one unit; the smallest unit has Converter = 1.
type Unit struct {
	Label     string          `db:"label" json:"label"`
	Name      string          `db:"name" json:"name"`
	Converter decimal.Decimal `db:"converter" json:"converter"`
}

// Item represents a stocked good.
type Item struct {
	entity.BaseEntity

	// ChartOfAccountID is the inventory account the item posts to
	ChartOfAccountID id.ID `db:"chart_of_account_id" json:"chartOfAccountId"`

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// Lot tracking: when set, stock is split by the lot dimension
	RequireExpiryDate       bool `db:"require_expiry_date" json:"requireExpiryDate"`
	RequireProductionNumber bool `db:"require_production_number" json:"requireProductionNumber"`

	Units []Unit `db:"-" json:"units"`
}

// UnitByLabel finds a unit by label (case-insensitive).
func (i *Item) UnitByLabel(label string) (Unit, bool) {
	for _, u := range i.Units {
		if strings.EqualFold(u.Label, label) {
			return u, true
		}
	}
	return Unit{}, false
}

// Repository defines the interface for Item persistence.
type Repository interface {
	// GetByID retrieves the item with its units.
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
}
