// Package app assembles the domain services from a set of storage and
// messaging backends. Both the server and the tests build through it.
package app

import (
	"time"

	"backoffice/internal/core/numerator"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/approval"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/authz"
	"backoffice/internal/domain/catalogs/customer"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/documents/delivery_note"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/notification"
	"backoffice/internal/domain/posting"
	"backoffice/internal/domain/registers/journal"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

// Backends are the ports the services run on.
type Backends struct {
	Tx      tx.Manager
	Numbers numerator.Generator

	Items         item.Repository
	Warehouses    warehouse.Repository
	Customers     customer.Repository
	DeliveryNotes delivery_note.Repository

	StockCorrections stock_correction.Repository
	SalesInvoices    sales_invoice.Repository

	Stock     stock.Repository
	Journal   journal.Repository
	Directory authz.Directory

	Notifier notification.Notifier
	Audit    audit.Recorder
	Observer approval.Observer
}

// Options tune the assembled services.
type Options struct {
	ReminderInterval time.Duration
	ReminderLimit    int
	// Now overrides the clock of every service.
	Now func() time.Time
}

// Services are the assembled domain services.
type Services struct {
	Gate             *authz.Gate
	Engine           *posting.Engine
	StockCorrections *stock_correction.Service
	SalesInvoices    *sales_invoice.Service
}

// New wires the services.
func New(b Backends, opts Options) *Services {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	gate := authz.NewGate(b.Directory)
	engine := posting.NewEngine(
		stock.NewLedger(b.Stock),
		journal.NewService(b.Journal),
		b.Items,
		posting.WithNow(now),
	)
	deps := approval.Deps{
		Tx:       b.Tx,
		Gate:     gate,
		Engine:   engine,
		Notifier: b.Notifier,
		Audit:    b.Audit,
		Observer: b.Observer,
		Now:      now,
	}

	scFlow := approval.New[*stock_correction.StockCorrection](
		stock_correction.WorkflowConfig(opts.ReminderInterval, opts.ReminderLimit),
		b.StockCorrections,
		deps,
	)
	siFlow := approval.New[*sales_invoice.SalesInvoice](
		sales_invoice.WorkflowConfig(opts.ReminderInterval, opts.ReminderLimit),
		b.SalesInvoices,
		deps,
	)

	return &Services{
		Gate:   gate,
		Engine: engine,
		StockCorrections: stock_correction.NewService(stock_correction.Deps{
			Repo:       b.StockCorrections,
			Tx:         b.Tx,
			Warehouses: b.Warehouses,
			Items:      b.Items,
			Engine:     engine,
			Numbers:    b.Numbers,
			Now:        now,
		}, scFlow),
		SalesInvoices: sales_invoice.NewService(sales_invoice.Deps{
			Repo:          b.SalesInvoices,
			Tx:            b.Tx,
			DeliveryNotes: b.DeliveryNotes,
			Customers:     b.Customers,
			Items:         b.Items,
			Engine:        engine,
			Numbers:       b.Numbers,
			Now:           now,
		}, siFlow),
	}
}

// MemoryBackends exposes an in-memory store as backends.
func MemoryBackends(s *memory.Store, notifier notification.Notifier) Backends {
	return Backends{
		Tx:               s,
		Numbers:          s.Numbers(),
		Items:            s.Items(),
		Warehouses:       s.Warehouses(),
		Customers:        s.Customers(),
		DeliveryNotes:    s.DeliveryNotes(),
		StockCorrections: s.StockCorrections(),
		SalesInvoices:    s.SalesInvoices(),
		Stock:            s.Stock(),
		Journal:          s.Journal(),
		Directory:        s.Directory(),
		Notifier:         notifier,
		Audit:            s.Audit(),
	}
}
