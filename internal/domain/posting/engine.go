// Package posting turns an approved form into inventory ledger entries and
// balanced journal pairs. Every method expects to run inside the caller's
// transaction with the document row already locked.
package posting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/registers/journal"
	"backoffice/internal/domain/registers/stock"
	"backoffice/pkg/logger"
)

const (
	msgStockNegative   = "Stock can not be minus"
	msgReverseNegative = "Stock will minus if you delete this form"
)

// StockLine is the inventory effect of one document line.
type StockLine struct {
	ItemID id.ID
	// Quantity is the signed delta in base units.
	Quantity         types.Quantity
	ExpiryDate       *time.Time
	ProductionNumber *string
}

// MovementSet is everything a document posts.
type MovementSet struct {
	Stock   []entity.StockMovement
	Journal []entity.JournalEntry
}

// Books exposes the lookups documents need to build their movements.
type Books interface {
	// Account resolves a setting journal account.
	Account(ctx context.Context, feature, name string) (id.ID, error)
	// UnitCost is the current weighted average cost of an item.
	UnitCost(ctx context.Context, itemID id.ID) (types.Money, error)
	// Item loads an item.
	Item(ctx context.Context, itemID id.ID) (*item.Item, error)
}

// Postable is a document the engine can post.
type Postable interface {
	GetForm() *form.Form
	GetWarehouseID() id.ID
	StockLines() []StockLine
	// SetStockSnapshot stores the balance around line i.
	SetStockSnapshot(i int, initial, final types.Quantity)
	GenerateMovements(ctx context.Context, books Books) (*MovementSet, error)
}

// Engine posts and reverses documents.
type Engine struct {
	ledger  *stock.Ledger
	journal *journal.Service
	items   item.Repository
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a posting engine.
func NewEngine(ledger *stock.Ledger, js *journal.Service, items item.Repository, opts ...Option) *Engine {
	e := &Engine{
		ledger:  ledger,
		journal: js,
		items:   items,
		tracer:  otel.Tracer("backoffice/posting"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Books implementation

func (e *Engine) Account(ctx context.Context, feature, name string) (id.ID, error) {
	return e.journal.Account(ctx, feature, name)
}

func (e *Engine) UnitCost(ctx context.Context, itemID id.ID) (types.Money, error) {
	return e.ledger.UnitCost(ctx, itemID)
}

func (e *Engine) Item(ctx context.Context, itemID id.ID) (*item.Item, error) {
	it, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Approve posts doc and marks it approved. A document approved already is
// returned untouched with already=true.
func (e *Engine) Approve(ctx context.Context, doc Postable, actor id.ID) (already bool, err error) {
	f := doc.GetForm()
	ctx, span := e.tracer.Start(ctx, "posting.approve", trace.WithAttributes(
		attribute.String("form.number", f.Number),
		attribute.String("form.type", f.FormableType),
	))
	defer span.End()

	already, err = f.CheckApprove(actor)
	if err != nil || already {
		return already, err
	}

	lines := doc.StockLines()
	if err := e.ledger.Lock(ctx, LockKeys(doc.GetWarehouseID(), lines)); err != nil {
		return false, err
	}

	if err := e.snapshot(ctx, doc, lines); err != nil {
		return false, err
	}

	set, err := doc.GenerateMovements(ctx, e)
	if err != nil {
		return false, err
	}
	if err := verifyLedger(lines, set.Stock); err != nil {
		return false, err
	}

	if err := e.ledger.RecordMovements(ctx, set.Stock); err != nil {
		return false, err
	}
	if err := e.journal.Post(ctx, set.Journal); err != nil {
		return false, err
	}

	f.MarkApproved(actor, e.now())

	logger.Info(ctx, "form posted",
		"form_id", f.ID,
		"number", f.Number,
		"stock_rows", len(set.Stock),
		"journal_rows", len(set.Journal),
	)
	return false, nil
}

// Visit is called for each line with the running balance of its lot and
// returns the balance after the line.
type Visit func(i int, it *item.Item, ln StockLine, current types.Quantity) (types.Quantity, error)

// Walk visits lines in order with the balance of their lot as of at. Lines
// sharing a lot see the balance left by the previous one.
func (e *Engine) Walk(ctx context.Context, warehouseID id.ID, lines []StockLine, at time.Time, visit Visit) error {
	running := make(map[lotKey]types.Quantity)
	for i, ln := range lines {
		it, err := e.Item(ctx, ln.ItemID)
		if err != nil {
			return err
		}
		key := newLotKey(it, warehouseID, ln)

		current, seen := running[key]
		if !seen {
			current, err = e.ledger.CurrentStock(ctx, it, warehouseID, at, ln.ExpiryDate, ln.ProductionNumber)
			if err != nil {
				return err
			}
		}

		next, err := visit(i, it, ln, current)
		if err != nil {
			return err
		}
		running[key] = next
	}
	return nil
}

// CheckStock fails when a decreasing line would take its lot below zero
// as of at.
func (e *Engine) CheckStock(ctx context.Context, warehouseID id.ID, lines []StockLine, at time.Time) error {
	return e.Walk(ctx, warehouseID, lines, at, func(_ int, _ *item.Item, ln StockLine, current types.Quantity) (types.Quantity, error) {
		final := current + ln.Quantity
		if ln.Quantity.IsNegative() && final.IsNegative() {
			return 0, apperror.NewStockWouldGoNegative(msgStockNegative, ln.ItemID, current.String(), ln.Quantity.String())
		}
		return final, nil
	})
}

// snapshot computes initial and final stock for every line at the form date.
func (e *Engine) snapshot(ctx context.Context, doc Postable, lines []StockLine) error {
	f := doc.GetForm()
	return e.Walk(ctx, doc.GetWarehouseID(), lines, f.Date, func(i int, _ *item.Item, ln StockLine, initial types.Quantity) (types.Quantity, error) {
		final := initial + ln.Quantity
		if ln.Quantity.IsNegative() && final.IsNegative() {
			return 0, apperror.NewStockWouldGoNegative(msgStockNegative, ln.ItemID, initial.String(), ln.Quantity.String()).
				WithForm(f.Ref())
		}
		doc.SetStockSnapshot(i, initial, final)
		return final, nil
	})
}

// CheckReversible verifies that removing the document's effect leaves no
// lot negative as of now.
func (e *Engine) CheckReversible(ctx context.Context, doc Postable) error {
	f := doc.GetForm()
	lines := doc.StockLines()
	if err := e.ledger.Lock(ctx, LockKeys(doc.GetWarehouseID(), lines)); err != nil {
		return err
	}

	return e.Walk(ctx, doc.GetWarehouseID(), lines, e.now(), func(_ int, _ *item.Item, ln StockLine, current types.Quantity) (types.Quantity, error) {
		after := current - ln.Quantity
		if after.IsNegative() {
			return 0, apperror.NewStockWouldGoNegative(msgReverseNegative, ln.ItemID, current.String(), ln.Quantity.String()).
				WithForm(f.Ref())
		}
		return after, nil
	})
}

// Reverse deletes every journal and ledger row of the form.
func (e *Engine) Reverse(ctx context.Context, formID id.ID) error {
	ctx, span := e.tracer.Start(ctx, "posting.reverse")
	defer span.End()

	if err := e.journal.Reverse(ctx, formID); err != nil {
		return err
	}
	return e.ledger.ReverseMovements(ctx, formID)
}

// StockMovements builds one ledger entry per non-zero line at the item's
// current unit cost.
func StockMovements(ctx context.Context, books Books, doc Postable) ([]entity.StockMovement, error) {
	f := doc.GetForm()
	lines := doc.StockLines()
	out := make([]entity.StockMovement, 0, len(lines))
	for _, ln := range lines {
		if ln.Quantity.IsZero() {
			continue
		}
		cost, err := books.UnitCost(ctx, ln.ItemID)
		if err != nil {
			return nil, err
		}
		m := entity.NewStockMovement(f.ID, f.FormableType, f.Date, doc.GetWarehouseID(), ln.ItemID, ln.Quantity, cost)
		m.ExpiryDate = ln.ExpiryDate
		m.ProductionNumber = ln.ProductionNumber
		out = append(out, m)
	}
	return out, nil
}

// LockKeys returns the distinct (item, warehouse) pairs of lines in lock order.
func LockKeys(warehouseID id.ID, lines []StockLine) []stock.Key {
	seen := make(map[stock.Key]bool, len(lines))
	keys := make([]stock.Key, 0, len(lines))
	for _, ln := range lines {
		k := stock.Key{ItemID: ln.ItemID, WarehouseID: warehouseID}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func verifyLedger(lines []StockLine, movements []entity.StockMovement) error {
	var want, got types.Quantity
	for _, ln := range lines {
		want += ln.Quantity
	}
	for i := range movements {
		got += movements[i].SignedQuantity()
	}
	if want != got {
		return apperror.NewInternal(fmt.Errorf("ledger sum %s does not match line sum %s", got, want))
	}
	return nil
}

type lotKey struct {
	item      id.ID
	warehouse id.ID
	expiry    string
	prodNo    string
}

func newLotKey(it *item.Item, warehouseID id.ID, ln StockLine) lotKey {
	k := lotKey{item: it.ID, warehouse: warehouseID}
	if it.RequireExpiryDate && ln.ExpiryDate != nil {
		k.expiry = ln.ExpiryDate.UTC().Format(time.RFC3339)
	}
	if it.RequireProductionNumber && ln.ProductionNumber != nil {
		k.prodNo = *ln.ProductionNumber
	}
	return k
}
