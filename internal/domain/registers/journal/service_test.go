package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

type fakeRepo struct {
	settings map[string]Setting
	entries  []entity.JournalEntry
}

func (f *fakeRepo) FindSetting(_ context.Context, feature, name string) (Setting, bool, error) {
	s, ok := f.settings[feature+"/"+name]
	return s, ok, nil
}

func (f *fakeRepo) CreateEntries(_ context.Context, e []entity.JournalEntry) error {
	f.entries = append(f.entries, e...)
	return nil
}

func (f *fakeRepo) DeleteByRecorder(_ context.Context, recorderID id.ID) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.RecorderID != recorderID {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

func (f *fakeRepo) GetByRecorder(_ context.Context, recorderID id.ID) ([]entity.JournalEntry, error) {
	var out []entity.JournalEntry
	for _, e := range f.entries {
		if e.RecorderID == recorderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestAccount(t *testing.T) {
	acct := id.New()
	svc := NewService(&fakeRepo{settings: map[string]Setting{
		"stock correction/difference stock expenses": {ChartOfAccountID: acct},
	}})

	got, err := svc.Account(context.Background(), "stock correction", "difference stock expenses")
	require.NoError(t, err)
	assert.Equal(t, acct, got)

	_, err = svc.Account(context.Background(), "sales", "cost of sales")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSettingJournalMissing, appErr.Code)
	assert.Equal(t, "Journal sales account - cost of sales not found", appErr.Message)
}

func TestPostAndReverse(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := NewService(repo)
	form := id.New()

	pair := entity.NewJournalPair(form, "stock correction", time.Now(), id.New(), id.New(), types.MustMoney("150.00"))
	require.NoError(t, svc.Post(ctx, pair[:]))

	entries, err := svc.Entries(ctx, form)
	require.NoError(t, err)
	debit, credit := entity.JournalTotals(entries)
	assert.True(t, debit.Equal(credit))
	assert.Len(t, entries, 2)

	require.NoError(t, svc.Reverse(ctx, form))
	entries, err = svc.Entries(ctx, form)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostRejectsUnbalanced(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	pair := entity.NewJournalPair(id.New(), "sales invoice", time.Now(), id.New(), id.New(), types.MustMoney("10"))
	pair[1].Amount = types.MustMoney("9.99")

	err := svc.Post(context.Background(), pair[:])
	assert.True(t, apperror.HasCode(err, apperror.CodeUnbalancedJournal))
	assert.Empty(t, repo.entries)
}
