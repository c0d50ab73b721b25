package journal

import (
	"context"
	"fmt"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// Service posts balanced journal entries.
type Service struct {
	repo Repository
}

// NewService creates a journal service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Account resolves the clearing account configured for (feature, name).
func (s *Service) Account(ctx context.Context, feature, name string) (id.ID, error) {
	setting, ok, err := s.repo.FindSetting(ctx, feature, name)
	if err != nil {
		return id.Nil(), fmt.Errorf("find setting journal %s/%s: %w", feature, name, err)
	}
	if !ok {
		return id.Nil(), apperror.NewSettingJournalMissing(feature, name)
	}
	return setting.ChartOfAccountID, nil
}

// Post records entries after checking that debit equals credit.
func (s *Service) Post(ctx context.Context, entries []entity.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	debit, credit := entity.JournalTotals(entries)
	if !debit.Equal(credit) {
		return apperror.NewBusinessRule(apperror.CodeUnbalancedJournal, "Journal is not balanced").
			WithDetail("debit", debit.StringFixed(2)).
			WithDetail("credit", credit.StringFixed(2))
	}

	if err := s.repo.CreateEntries(ctx, entries); err != nil {
		return fmt.Errorf("create journal entries: %w", err)
	}

	logger.Info(ctx, "posted journal entries",
		"count", len(entries),
		"recorder_id", entries[0].RecorderID,
		"amount", debit.StringFixed(2),
	)
	return nil
}

// Reverse deletes every journal row of a form.
func (s *Service) Reverse(ctx context.Context, recorderID id.ID) error {
	if err := s.repo.DeleteByRecorder(ctx, recorderID); err != nil {
		return fmt.Errorf("delete journal entries: %w", err)
	}
	return nil
}

// Entries returns the journal rows of a form.
func (s *Service) Entries(ctx context.Context, recorderID id.ID) ([]entity.JournalEntry, error) {
	return s.repo.GetByRecorder(ctx, recorderID)
}
