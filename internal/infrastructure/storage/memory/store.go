// Package memory provides an in-process implementation of every repository
// port. Transactions are serialized and roll back by restoring a copy of
// the state taken at begin. It backs service tests and the local profile
// of the server.
package memory

import (
	"context"
	"sync"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/numerator"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/catalogs/customer"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/documents/delivery_note"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/registers/journal"
)

type txKey struct{}

type state struct {
	items            map[id.ID]*item.Item
	warehouses       map[id.ID]*warehouse.Warehouse
	customers        map[id.ID]*customer.Customer
	deliveryNotes    map[id.ID]*delivery_note.DeliveryNote // by form ID
	stockCorrections map[id.ID]*stock_correction.StockCorrection
	salesInvoices    map[id.ID]*sales_invoice.SalesInvoice

	movements []entity.StockMovement
	journal   []entity.JournalEntry
	settings  map[string]journal.Setting

	roles            map[id.ID]string
	grants           map[string]map[string]bool
	defaultBranch    map[id.ID]id.ID
	defaultWarehouse map[id.ID]id.ID

	audit []audit.Entry
}

func newState() *state {
	return &state{
		items:            make(map[id.ID]*item.Item),
		warehouses:       make(map[id.ID]*warehouse.Warehouse),
		customers:        make(map[id.ID]*customer.Customer),
		deliveryNotes:    make(map[id.ID]*delivery_note.DeliveryNote),
		stockCorrections: make(map[id.ID]*stock_correction.StockCorrection),
		salesInvoices:    make(map[id.ID]*sales_invoice.SalesInvoice),
		settings:         make(map[string]journal.Setting),
		roles:            make(map[id.ID]string),
		grants:           make(map[string]map[string]bool),
		defaultBranch:    make(map[id.ID]id.ID),
		defaultWarehouse: make(map[id.ID]id.ID),
	}
}

// clone copies everything a transaction can write. Catalogs and the
// directory are only written by seed helpers and are shared.
func (s *state) clone() *state {
	c := *s
	c.deliveryNotes = make(map[id.ID]*delivery_note.DeliveryNote, len(s.deliveryNotes))
	for k, v := range s.deliveryNotes {
		c.deliveryNotes[k] = copyDeliveryNote(v)
	}
	c.stockCorrections = make(map[id.ID]*stock_correction.StockCorrection, len(s.stockCorrections))
	for k, v := range s.stockCorrections {
		c.stockCorrections[k] = copyStockCorrection(v)
	}
	c.salesInvoices = make(map[id.ID]*sales_invoice.SalesInvoice, len(s.salesInvoices))
	for k, v := range s.salesInvoices {
		c.salesInvoices[k] = copySalesInvoice(v)
	}
	c.movements = append([]entity.StockMovement(nil), s.movements...)
	c.journal = append([]entity.JournalEntry(nil), s.journal...)
	c.audit = append([]audit.Entry(nil), s.audit...)
	return &c
}

// Store is the in-memory database.
type Store struct {
	// txMu serializes transactions, standing in for row and advisory locks.
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state

	numbers *numerator.MemoryGenerator
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState(), numbers: numerator.NewMemoryGenerator()}
}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.st.clone()
	s.mu.RUnlock()
	counters := s.numbers.Snapshot()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = saved
		s.mu.Unlock()
		s.numbers.Restore(counters)
		return err
	}
	return nil
}

// Numbers returns the form number generator.
func (s *Store) Numbers() numerator.Generator { return s.numbers }

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

func copyDeliveryNote(d *delivery_note.DeliveryNote) *delivery_note.DeliveryNote {
	c := *d
	c.Items = append([]delivery_note.Item(nil), d.Items...)
	return &c
}

func copyStockCorrection(d *stock_correction.StockCorrection) *stock_correction.StockCorrection {
	c := *d
	c.Items = append([]stock_correction.Item(nil), d.Items...)
	return &c
}

func copySalesInvoice(d *sales_invoice.SalesInvoice) *sales_invoice.SalesInvoice {
	c := *d
	c.Items = append([]sales_invoice.Item(nil), d.Items...)
	return &c
}
