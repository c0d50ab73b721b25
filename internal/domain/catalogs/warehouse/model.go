// Package warehouse provides the Warehouse catalog.
// Every warehouse belongs to exactly one branch.
package warehouse

import (
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// Warehouse represents a storage location for goods.
type Warehouse struct {
	entity.BaseEntity

	BranchID id.ID  `db:"branch_id" json:"branchId"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
}
