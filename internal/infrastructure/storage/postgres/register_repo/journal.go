package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/registers/journal"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	journalsTable        = "journals"
	settingJournalsTable = "setting_journals"
)

var journalColumns = []string{
	"line_id", "recorder_id", "recorder_type", "period",
	"chart_of_account_id", "side", "amount",
	"journalable_type", "journalable_id", "created_at",
}

// JournalRepo implements journal.Repository.
type JournalRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewJournalRepo creates a new journal repository.
func NewJournalRepo(txm *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindSetting looks up the posting account of (feature, name).
func (r *JournalRepo) FindSetting(ctx context.Context, feature, name string) (journal.Setting, bool, error) {
	sql, args, err := r.builder.
		Select("id", "feature", "name", "COALESCE(description, '') AS description", "chart_of_account_id").
		From(settingJournalsTable).
		Where(squirrel.Eq{"feature": feature, "name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return journal.Setting{}, false, fmt.Errorf("build query: %w", err)
	}

	var s journal.Setting
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return journal.Setting{}, false, nil
		}
		return journal.Setting{}, false, fmt.Errorf("get setting journal: %w", err)
	}
	return s, true, nil
}

// CreateEntries batch inserts journal rows with COPY.
func (r *JournalRepo) CreateEntries(ctx context.Context, entries []entity.JournalEntry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.LineID, e.RecorderID, e.RecorderType, e.Period,
			e.AccountID, string(e.Side), postgres.Numeric(e.Amount),
			nullString(e.JournalableType), e.JournalableID, e.CreatedAt,
		})
	}
	if _, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, journalsTable, journalColumns, rows); err != nil {
		return fmt.Errorf("copy journal entries: %w", err)
	}
	return nil
}

// DeleteByRecorder removes every journal row of a form.
func (r *JournalRepo) DeleteByRecorder(ctx context.Context, recorderID id.ID) error {
	sql, args, err := r.builder.Delete(journalsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete journal entries: %w", err)
	}
	return nil
}

// GetByRecorder retrieves the journal rows of a form.
func (r *JournalRepo) GetByRecorder(ctx context.Context, recorderID id.ID) ([]entity.JournalEntry, error) {
	cols := append([]string(nil), journalColumns...)
	cols[7] = "COALESCE(journalable_type, '') AS journalable_type"

	sql, args, err := r.builder.Select(cols...).
		From(journalsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.JournalEntry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select journal entries: %w", err)
	}
	return entries, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ journal.Repository = (*JournalRepo)(nil)
