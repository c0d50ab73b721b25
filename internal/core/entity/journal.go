package entity

import (
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// JournalSide is the column a journal amount is posted to.
type JournalSide string

const (
	SideDebit  JournalSide = "debit"
	SideCredit JournalSide = "credit"
)

// JournalEntry is one row of the general journal.
// Exactly one of debit/credit is populated: Side selects which.
type JournalEntry struct {
	MovementBase

	AccountID id.ID       `db:"chart_of_account_id" json:"chartOfAccountId"`
	Side      JournalSide `db:"side" json:"side"`
	Amount    types.Money `db:"amount" json:"amount"`

	// Journalable is the sub-ledger object (usually the item) of the row.
	JournalableType string `db:"journalable_type" json:"journalableType,omitempty"`
	JournalableID   *id.ID `db:"journalable_id" json:"journalableId,omitempty"`
}

// Debit returns the debit column value.
func (e JournalEntry) Debit() types.Money {
	if e.Side == SideDebit {
		return e.Amount
	}
	return types.Zero()
}

// Credit returns the credit column value.
func (e JournalEntry) Credit() types.Money {
	if e.Side == SideCredit {
		return e.Amount
	}
	return types.Zero()
}

// NewJournalEntry creates a single journal row.
func NewJournalEntry(
	recorderID id.ID,
	recorderType string,
	period time.Time,
	account id.ID,
	side JournalSide,
	amount types.Money,
) JournalEntry {
	return JournalEntry{
		MovementBase: NewMovementBase(recorderID, recorderType, period),
		AccountID:    account,
		Side:         side,
		Amount:       amount,
	}
}

// NewJournalPair creates a balanced debit/credit pair for amount.
func NewJournalPair(
	recorderID id.ID,
	recorderType string,
	period time.Time,
	debitAccount, creditAccount id.ID,
	amount types.Money,
) [2]JournalEntry {
	return [2]JournalEntry{
		NewJournalEntry(recorderID, recorderType, period, debitAccount, SideDebit, amount),
		NewJournalEntry(recorderID, recorderType, period, creditAccount, SideCredit, amount),
	}
}

// JournalTotals sums both columns of entries.
func JournalTotals(entries []JournalEntry) (debit, credit types.Money) {
	debit, credit = types.Zero(), types.Zero()
	for _, e := range entries {
		debit = debit.Add(e.Debit())
		credit = credit.Add(e.Credit())
	}
	return debit, credit
}
