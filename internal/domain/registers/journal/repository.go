// Package journal provides the general journal and the posting account
// settings documents resolve their clearing accounts from.
package journal

import (
	"context"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// Setting maps (feature, name) to a chart of accounts entry.
type Setting struct {
	ID               id.ID  `db:"id" json:"id"`
	Feature          string `db:"feature" json:"feature"`
	Name             string `db:"name" json:"name"`
	Description      string `db:"description" json:"description"`
	ChartOfAccountID id.ID  `db:"chart_of_account_id" json:"chartOfAccountId"`
}

// Repository defines operations on journal rows and settings.
type Repository interface {
	// FindSetting returns ok=false when no setting exists.
	FindSetting(ctx context.Context, feature, name string) (Setting, bool, error)

	CreateEntries(ctx context.Context, entries []entity.JournalEntry) error
	DeleteByRecorder(ctx context.Context, recorderID id.ID) error
	GetByRecorder(ctx context.Context, recorderID id.ID) ([]entity.JournalEntry, error)
}
