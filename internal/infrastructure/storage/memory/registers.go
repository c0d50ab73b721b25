package memory

import (
	"context"
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/journal"
	"backoffice/internal/domain/registers/stock"
)

// Stock returns the inventory ledger repository.
func (s *Store) Stock() stock.Repository { return stockRepo{s} }

// Journal returns the journal repository.
func (s *Store) Journal() journal.Repository { return journalRepo{s} }

// PutSetting configures a posting account.
func (s *Store) PutSetting(feature, name string, account id.ID) {
	s.write(func(st *state) {
		st.settings[settingKey(feature, name)] = journal.Setting{
			ID:               id.New(),
			Feature:          feature,
			Name:             name,
			ChartOfAccountID: account,
		}
	})
}

// Receive books opening stock for an item, as a goods receipt would.
func (s *Store) Receive(warehouseID, itemID id.ID, qty types.Quantity, unitCost types.Money, at time.Time) {
	m := entity.NewStockMovement(id.New(), "opening balance", at, warehouseID, itemID, qty, unitCost)
	s.write(func(st *state) { st.movements = append(st.movements, m) })
}

// JournalEntries returns every journal row.
func (s *Store) JournalEntries() []entity.JournalEntry {
	var out []entity.JournalEntry
	s.read(func(st *state) { out = append(out, st.journal...) })
	return out
}

func settingKey(feature, name string) string { return feature + "\x00" + name }

type stockRepo struct{ s *Store }

func (r stockRepo) SumUntil(_ context.Context, q stock.SumQuery) (types.Quantity, error) {
	var sum types.Quantity
	r.s.read(func(st *state) {
		for i := range st.movements {
			m := &st.movements[i]
			if m.ItemID != q.ItemID || m.WarehouseID != q.WarehouseID || m.Period.After(q.Until) {
				continue
			}
			if q.ExpiryDate != nil && (m.ExpiryDate == nil || !m.ExpiryDate.Equal(*q.ExpiryDate)) {
				continue
			}
			if q.ProductionNumber != nil && (m.ProductionNumber == nil || *m.ProductionNumber != *q.ProductionNumber) {
				continue
			}
			sum += m.SignedQuantity()
		}
	})
	return sum, nil
}

// Lock is a no-op: transactions are already serialized.
func (r stockRepo) Lock(context.Context, stock.Key) error { return nil }

func (r stockRepo) CreateMovements(_ context.Context, movements []entity.StockMovement) error {
	r.s.write(func(st *state) { st.movements = append(st.movements, movements...) })
	return nil
}

func (r stockRepo) DeleteMovementsByRecorder(_ context.Context, recorderID id.ID) error {
	r.s.write(func(st *state) {
		kept := st.movements[:0:0]
		for _, m := range st.movements {
			if m.RecorderID != recorderID {
				kept = append(kept, m)
			}
		}
		st.movements = kept
	})
	return nil
}

func (r stockRepo) GetMovementsByRecorder(_ context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.RecorderID == recorderID {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r stockRepo) AverageUnitCost(_ context.Context, itemID id.ID) (types.Money, error) {
	value, qty := types.Zero(), types.Zero()
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.ItemID != itemID || m.RecordType != entity.RecordTypeReceipt {
				continue
			}
			q := m.Quantity.Decimal()
			value = value.Add(q.Mul(m.UnitCost))
			qty = qty.Add(q)
		}
	})
	if qty.IsZero() {
		return types.Zero(), nil
	}
	return value.Div(qty), nil
}

type journalRepo struct{ s *Store }

func (r journalRepo) FindSetting(_ context.Context, feature, name string) (journal.Setting, bool, error) {
	var (
		out journal.Setting
		ok  bool
	)
	r.s.read(func(st *state) { out, ok = st.settings[settingKey(feature, name)] })
	return out, ok, nil
}

func (r journalRepo) CreateEntries(_ context.Context, entries []entity.JournalEntry) error {
	r.s.write(func(st *state) { st.journal = append(st.journal, entries...) })
	return nil
}

func (r journalRepo) DeleteByRecorder(_ context.Context, recorderID id.ID) error {
	r.s.write(func(st *state) {
		kept := st.journal[:0:0]
		for _, e := range st.journal {
			if e.RecorderID != recorderID {
				kept = append(kept, e)
			}
		}
		st.journal = kept
	})
	return nil
}

func (r journalRepo) GetByRecorder(_ context.Context, recorderID id.ID) ([]entity.JournalEntry, error) {
	var out []entity.JournalEntry
	r.s.read(func(st *state) {
		for _, e := range st.journal {
			if e.RecorderID == recorderID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}
