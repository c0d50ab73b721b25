package form

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

var testNow = time.Date(2021, time.January, 10, 9, 0, 0, 0, time.UTC)

func newTestForm(maker, approver id.ID) Form {
	return New("stock correction", id.New(), id.New(), maker, approver, "SC2101001", "  hello   world ", testNow)
}

func TestNew_NormalizesNotes(t *testing.T) {
	f := newTestForm(id.New(), id.New())
	assert.Equal(t, "hello world", f.Notes)
	assert.Equal(t, StatusPending, f.ApprovalStatus)
	assert.Nil(t, f.CancellationStatus)
}

func TestNormalizeNotes_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	assert.Len(t, NormalizeNotes(long), MaxNotesLength)

	// multibyte characters count as one
	assert.Equal(t, MaxNotesLength, len([]rune(NormalizeNotes(strings.Repeat("é", 400)))))

	// a space at the cut point is kept
	words := NormalizeNotes(strings.Repeat("abcd ", 60))
	assert.Len(t, words, MaxNotesLength)
	assert.True(t, strings.HasSuffix(words, " "))
}

func TestNormalizeNotes_CollapsesSpacesOnly(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeNotes("  a   b c  "))
	assert.Equal(t, "line one\nline two", NormalizeNotes("\tline   one\nline two\n"))
	assert.Equal(t, "a\t b", NormalizeNotes("a\t   b"))
}

func TestCheckApprove(t *testing.T) {
	maker, approver := id.New(), id.New()

	t.Run("only the designated approver", func(t *testing.T) {
		f := newTestForm(maker, approver)
		_, err := f.CheckApprove(maker)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	})

	t.Run("rejected form can never be approved", func(t *testing.T) {
		f := newTestForm(maker, approver)
		f.MarkRejected(approver, testNow, "wrong quantity")
		_, err := f.CheckApprove(approver)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeAlreadyRejected, appErr.Code)
		assert.Equal(t, "Stock correction already rejected", appErr.Message)
		assert.Equal(t, "SC2101001", appErr.Details["formNumber"])
		assert.Equal(t, "rejected", appErr.Details["formStatus"])
		assert.Equal(t, "stock correction", appErr.Details["formType"])
	})

	t.Run("approved form short-circuits", func(t *testing.T) {
		f := newTestForm(maker, approver)
		already, err := f.CheckApprove(approver)
		require.NoError(t, err)
		assert.False(t, already)

		f.MarkApproved(approver, testNow)
		already, err = f.CheckApprove(approver)
		require.NoError(t, err)
		assert.True(t, already)
		assert.Equal(t, approver, *f.ApprovalBy)
	})
}

func TestCheckReject(t *testing.T) {
	maker, approver := id.New(), id.New()
	f := newTestForm(maker, approver)
	f.MarkApproved(approver, testNow)

	_, err := f.CheckReject(approver)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyApproved))

	g := newTestForm(maker, approver)
	g.MarkRejected(approver, testNow, "  ")
	assert.Nil(t, g.ApprovalReason)
	already, err := g.CheckReject(approver)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCancellationLifecycle(t *testing.T) {
	maker, approver := id.New(), id.New()
	f := newTestForm(maker, approver)

	_, err := f.CheckCancellationApprove(approver)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	require.NoError(t, f.CheckMaker(maker, false, "Forbidden - not maker"))
	assert.True(t, apperror.HasCode(f.CheckMaker(approver, false, "Forbidden - not maker"), apperror.CodeForbidden))
	assert.NoError(t, f.CheckMaker(approver, true, "Forbidden - not maker"))

	_, err = RequireReason("   ")
	assert.True(t, apperror.HasCode(err, apperror.CodeReasonRequired))

	f.RequestCancellation(maker, "duplicate", testNow)
	assert.True(t, f.IsCancellationPending())
	assert.Equal(t, approver, *f.RequestCancellationTo)

	_, err = f.CheckCancellationApprove(maker)
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	already, err := f.CheckCancellationApprove(approver)
	require.NoError(t, err)
	assert.False(t, already)

	f.MarkCancellationApproved(approver, testNow)
	assert.True(t, f.IsCancelled())
	assert.Equal(t, "cancelled", f.StatusLabel())

	already, err = f.CheckCancellationApprove(approver)
	require.NoError(t, err)
	assert.True(t, already)

	_, err = f.CheckCancellationReject(approver)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyApproved))

	_, err = f.CheckApprove(approver)
	assert.True(t, apperror.HasCode(err, apperror.CodeFormCancelled))
}

func TestCheckNotDone(t *testing.T) {
	f := newTestForm(id.New(), id.New())
	assert.NoError(t, f.CheckNotDone("delete"))

	f.Done = true
	err := f.CheckNotDone("delete")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Can not delete already referenced stock correction", appErr.Message)
}

func TestResetForEdit(t *testing.T) {
	maker, approver, newApprover := id.New(), id.New(), id.New()
	f := newTestForm(maker, approver)
	f.MarkRejected(approver, testNow, "fix it")
	f.RequestCancellation(maker, "dup", testNow)
	f.Done = true

	later := testNow.Add(time.Hour)
	f.ResetForEdit(maker, newApprover, " corrected ", later)

	assert.Equal(t, StatusPending, f.ApprovalStatus)
	assert.Nil(t, f.ApprovalBy)
	assert.Nil(t, f.ApprovalReason)
	assert.Nil(t, f.CancellationStatus)
	assert.Nil(t, f.RequestCancellationTo)
	assert.False(t, f.Done)
	assert.Equal(t, newApprover, f.RequestApprovalTo)
	assert.Equal(t, "corrected", f.Notes)
	assert.Equal(t, later, f.Date)
	assert.Equal(t, maker, *f.UpdatedBy)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("pending;approvalApproved")
	require.NoError(t, err)
	done, ok := f.DoneValue()
	assert.True(t, ok)
	assert.False(t, done)
	assert.Equal(t, StatusApproved, *f.Approval)

	f, err = ParseFilter("cancellationApproved;null")
	require.NoError(t, err)
	assert.True(t, f.WantsCancelled())
	assert.Nil(t, f.Approval)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.False(t, f.Enabled)

	_, err = ParseFilter("sideways;null")
	assert.Error(t, err)
}

func TestFilter_Match(t *testing.T) {
	maker, approver := id.New(), id.New()
	pending := newTestForm(maker, approver)
	approved := newTestForm(maker, approver)
	approved.MarkApproved(approver, testNow)
	cancelled := newTestForm(maker, approver)
	cancelled.RequestCancellation(maker, "dup", testNow)
	cancelled.MarkCancellationApproved(approver, testNow)

	onlyApproved, _ := ParseFilter("pending;approvalApproved")
	assert.False(t, onlyApproved.Match(&pending))
	assert.True(t, onlyApproved.Match(&approved))
	assert.False(t, onlyApproved.Match(&cancelled))

	onlyCancelled, _ := ParseFilter("cancellationApproved;null")
	assert.True(t, onlyCancelled.Match(&cancelled))
	assert.False(t, onlyCancelled.Match(&approved))

	assert.True(t, Filter{}.Match(&cancelled))
}
