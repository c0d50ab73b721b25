// Package apptest builds a fully wired in-memory back office for tests.
package apptest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/app"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/approval"
	"backoffice/internal/domain/authz"
	"backoffice/internal/domain/catalogs/customer"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/documents/delivery_note"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/notification"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

// Roles seeded by New.
const (
	RoleClerk      = "clerk"
	RoleSupervisor = "supervisor"
)

// Notifier records notices, reminders and cancellations. Scheduling a
// key twice keeps one series.
type Notifier struct {
	mu        sync.Mutex
	Notices   []notification.Notice
	Reminders map[string]notification.Reminder
	Cancelled []string
	Err       error
}

func newNotifier() *Notifier {
	return &Notifier{Reminders: make(map[string]notification.Reminder)}
}

func (n *Notifier) NotifyApprover(_ context.Context, notice notification.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Notices = append(n.Notices, notice)
	return nil
}

func (n *Notifier) ScheduleReminder(_ context.Context, r notification.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	if _, ok := n.Reminders[r.Key]; !ok {
		n.Reminders[r.Key] = r
	}
	return nil
}

func (n *Notifier) CancelReminder(_ context.Context, key string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.Reminders, key)
	n.Cancelled = append(n.Cancelled, key)
	return nil
}

// NoticesFor returns the notices of one form.
func (n *Notifier) NoticesFor(formID id.ID) []notification.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Notice
	for _, x := range n.Notices {
		if x.FormID == formID {
			out = append(out, x)
		}
	}
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Fixture is a seeded back office.
type Fixture struct {
	Store    *memory.Store
	Services *app.Services
	Notifier *Notifier
	Clock    *Clock

	Branch    id.ID
	Warehouse *warehouse.Warehouse
	Customer  *customer.Customer

	// Item has the units "pcs" (1) and "box" (12) and 100 pcs in stock.
	Item *item.Item
	// Lot tracks expiry dates and has no stock.
	Lot *item.Item

	InventoryAccount id.ID

	Maker    id.ID
	Approver id.ID
	Admin    id.ID
	// Outsider has the clerk role but no default location.
	Outsider id.ID
}

// Start is the initial clock value.
var Start = time.Date(2021, time.January, 15, 10, 0, 0, 0, time.UTC)

// Opening is the receipt date of the seeded stock.
var Opening = Start.AddDate(0, 0, -7)

// Option adjusts the wiring of a fixture.
type Option func(b *app.Backends, o *app.Options)

// WithObserver installs a transition observer.
func WithObserver(obs approval.Observer) Option {
	return func(b *app.Backends, _ *app.Options) { b.Observer = obs }
}

// WithReminders overrides the reminder series.
func WithReminders(interval time.Duration, limit int) Option {
	return func(_ *app.Backends, o *app.Options) {
		o.ReminderInterval = interval
		o.ReminderLimit = limit
	}
}

// New creates a seeded fixture.
func New(t testing.TB, opts ...Option) *Fixture {
	t.Helper()

	f := &Fixture{
		Store:            memory.NewStore(),
		Notifier:         newNotifier(),
		Clock:            &Clock{now: Start},
		Branch:           id.New(),
		InventoryAccount: id.New(),
		Maker:            id.New(),
		Approver:         id.New(),
		Admin:            id.New(),
		Outsider:         id.New(),
	}

	f.Warehouse = &warehouse.Warehouse{BaseEntity: entity.NewBaseEntity(), BranchID: f.Branch, Code: "WH1", Name: "Main Warehouse"}
	f.Store.PutWarehouse(f.Warehouse)

	address := "Jl. Merdeka 1"
	f.Customer = &customer.Customer{BaseEntity: entity.NewBaseEntity(), Code: "C001", Name: "Toko Makmur", Address: &address}
	f.Store.PutCustomer(f.Customer)

	f.Item = &item.Item{
		BaseEntity:       entity.NewBaseEntity(),
		ChartOfAccountID: f.InventoryAccount,
		Code:             "ITM-1",
		Name:             "Paracetamol",
		Units: []item.Unit{
			{Label: "pcs", Name: "Pieces", Converter: decimal.NewFromInt(1)},
			{Label: "box", Name: "Box", Converter: decimal.NewFromInt(12)},
		},
	}
	f.Store.PutItem(f.Item)
	f.Lot = &item.Item{
		BaseEntity:        entity.NewBaseEntity(),
		ChartOfAccountID:  f.InventoryAccount,
		Code:              "ITM-2",
		Name:              "Vaccine",
		RequireExpiryDate: true,
		Units:             []item.Unit{{Label: "vial", Name: "Vial", Converter: decimal.NewFromInt(1)}},
	}
	f.Store.PutItem(f.Lot)

	f.Store.Receive(f.Warehouse.ID, f.Item.ID, types.NewQuantity(100), types.MustMoney("5000"), Opening)

	for _, s := range []struct{ feature, name string }{
		{stock_correction.JournalFeature, stock_correction.JournalSetting},
		{sales_invoice.JournalFeature, sales_invoice.SettingReceivable},
		{sales_invoice.JournalFeature, sales_invoice.SettingIncome},
		{sales_invoice.JournalFeature, sales_invoice.SettingTaxPayable},
		{sales_invoice.JournalFeature, sales_invoice.SettingCostOfSales},
	} {
		f.Store.PutSetting(s.feature, s.name, id.New())
	}

	var clerk, supervisor []string
	for _, label := range []string{stock_correction.DocumentType, sales_invoice.DocumentType} {
		clerk = append(clerk,
			authz.Permission(authz.ActionCreate, label),
			authz.Permission(authz.ActionUpdate, label),
			authz.Permission(authz.ActionDelete, label),
		)
		supervisor = append(supervisor, authz.Permission(authz.ActionApprove, label))
	}
	f.Store.Grant(RoleClerk, clerk...)
	f.Store.Grant(RoleSupervisor, supervisor...)

	f.Store.GrantRole(f.Maker, RoleClerk)
	f.Store.GrantRole(f.Outsider, RoleClerk)
	f.Store.GrantRole(f.Approver, RoleSupervisor)
	f.Store.GrantRole(f.Admin, authz.BypassRole)
	f.Store.SetDefaults(f.Maker, f.Branch, f.Warehouse.ID)
	f.Store.SetDefaults(f.Admin, f.Branch, f.Warehouse.ID)

	backends := app.MemoryBackends(f.Store, f.Notifier)
	options := app.Options{Now: f.Clock.Now}
	for _, opt := range opts {
		opt(&backends, &options)
	}
	f.Services = app.New(backends, options)
	return f
}

// Stock returns the current balance of it in the fixture warehouse.
func (f *Fixture) Stock(t testing.TB, it *item.Item) types.Quantity {
	t.Helper()
	q, err := f.Store.Stock().SumUntil(context.Background(), stock.SumQuery{
		ItemID:      it.ID,
		WarehouseID: f.Warehouse.ID,
		Until:       f.Clock.Now(),
	})
	if err != nil {
		t.Fatalf("sum stock: %v", err)
	}
	return q
}

// DeliveryNote seeds a pending delivery note of qty pcs of the fixture item.
func (f *Fixture) DeliveryNote(qty int64) *delivery_note.DeliveryNote {
	docID := id.New()
	dn := &delivery_note.DeliveryNote{
		ID:          docID,
		WarehouseID: f.Warehouse.ID,
		CustomerID:  f.Customer.ID,
		Form:        form.New(delivery_note.DocumentType, docID, f.Branch, f.Maker, f.Approver, "DN2101001", "", Opening),
		Items: []delivery_note.Item{{
			ID:       id.New(),
			ItemID:   f.Item.ID,
			Quantity: types.NewQuantity(qty),
			Unit:     "pcs",
		}},
	}
	dn.Form.MarkApproved(f.Approver, Opening)
	f.Store.PutDeliveryNote(dn)
	return dn
}
