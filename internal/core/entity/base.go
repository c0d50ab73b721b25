// Package entity provides core domain entities shared by documents and registers.
package entity

import (
	"time"

	"backoffice/internal/core/id"
)

// BaseEntity contains the primary key shared by all entities.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{ID: id.New()}
}

// BaseDocument extends BaseEntity with audit fields for documents.
type BaseDocument struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy id.ID     `db:"created_by" json:"createdBy"`
	UpdatedBy *id.ID    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseDocument creates a new BaseDocument stamped with the maker and time.
func NewBaseDocument(maker id.ID, at time.Time) BaseDocument {
	return BaseDocument{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  at,
		UpdatedAt:  at,
		CreatedBy:  maker,
	}
}

// Touch records an update by actor.
func (b *BaseDocument) Touch(actor id.ID, at time.Time) {
	b.UpdatedAt = at
	b.UpdatedBy = id.Ptr(actor)
}
