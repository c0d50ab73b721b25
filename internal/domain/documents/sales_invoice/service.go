package sales_invoice

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/numerator"
	"backoffice/internal/core/tx"
	"backoffice/internal/core/types"
	"backoffice/internal/domain"
	"backoffice/internal/domain/approval"
	"backoffice/internal/domain/catalogs/customer"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/documents/delivery_note"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/posting"
	"backoffice/pkg/logger"
)

// CreateRequest is the input of Create.
type CreateRequest struct {
	// FormID is the form of the delivery note being invoiced.
	FormID            id.ID           `json:"formId" validate:"required"`
	CustomerID        id.ID           `json:"customerId" validate:"required"`
	RequestApprovalTo id.ID           `json:"requestApprovalTo" validate:"required"`
	DueDate           time.Time       `json:"dueDate" validate:"required"`
	TypeOfTax         TaxType         `json:"typeOfTax" validate:"required,oneof=include exclude non"`
	DiscountPercent   decimal.Decimal `json:"discountPercent"`
	DiscountValue     types.Money     `json:"discountValue"`
	Notes             string          `json:"notes"`
	Items             []ItemRequest   `json:"items" validate:"required,min=1,dive"`
}

// ItemRequest is one requested line.
type ItemRequest struct {
	ItemID           id.ID            `json:"itemId" validate:"required"`
	ReferenceItemID  id.ID            `json:"referenceItemId" validate:"required"`
	Quantity         *types.Quantity  `json:"quantity" validate:"required"`
	Unit             string           `json:"itemUnit" validate:"required"`
	Converter        *decimal.Decimal `json:"converter" validate:"required"`
	AllocationID     *id.ID           `json:"allocationId"`
	Price            *types.Money     `json:"price" validate:"required"`
	DiscountPercent  decimal.Decimal  `json:"discountPercent"`
	DiscountValue    types.Money      `json:"discountValue"`
	ExpiryDate       *time.Time       `json:"expiryDate"`
	ProductionNumber *string          `json:"productionNumber"`
}

// UpdateRequest edits prices and discounts of an invoice.
type UpdateRequest struct {
	RequestApprovalTo id.ID           `json:"requestApprovalTo" validate:"required"`
	DueDate           time.Time       `json:"dueDate" validate:"required"`
	TypeOfTax         TaxType         `json:"typeOfTax" validate:"required,oneof=include exclude non"`
	DiscountPercent   decimal.Decimal `json:"discountPercent"`
	DiscountValue     types.Money     `json:"discountValue"`
	Notes             string          `json:"notes"`
	Items             []ItemEdit      `json:"items" validate:"dive"`
}

// ItemEdit reprices one line.
type ItemEdit struct {
	SalesInvoiceItemID id.ID           `json:"salesInvoiceItemId" validate:"required"`
	Price              *types.Money    `json:"price" validate:"required"`
	DiscountPercent    decimal.Decimal `json:"discountPercent"`
	DiscountValue      types.Money     `json:"discountValue"`
}

// Service implements the sales invoice operations.
type Service struct {
	repo          Repository
	workflow      *approval.Workflow[*SalesInvoice]
	tx            tx.Manager
	deliveryNotes delivery_note.Repository
	customers     customer.Repository
	items         item.Repository
	engine        *posting.Engine
	numbers       numerator.Generator
	validate      *validator.Validate
	now           func() time.Time
}

// Deps are the collaborators of the service.
type Deps struct {
	Repo          Repository
	Tx            tx.Manager
	DeliveryNotes delivery_note.Repository
	Customers     customer.Repository
	Items         item.Repository
	Engine        *posting.Engine
	Numbers       numerator.Generator
	Now           func() time.Time
}

// NewService creates the service and hooks the reference release into the
// cancellation approval of flow.
func NewService(deps Deps, flow *approval.Workflow[*SalesInvoice]) *Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &Service{
		repo:          deps.Repo,
		workflow:      flow,
		tx:            deps.Tx,
		deliveryNotes: deps.DeliveryNotes,
		customers:     deps.Customers,
		items:         deps.Items,
		engine:        deps.Engine,
		numbers:       deps.Numbers,
		validate:      validator.New(),
		now:           now,
	}
	flow.OnCancelled(s.releaseReference)
	return s
}

// WorkflowConfig is the lifecycle configuration of sales invoices.
func WorkflowConfig(interval time.Duration, limit int) approval.Config {
	return approval.Config{
		Label:            DocumentType,
		CancelMessage:    "Forbidden - Only maker can delete the invoice",
		EditMessage:      "Forbidden - Only maker can update the invoice",
		AllowMakerBypass: true,
		ReminderInterval: interval,
		ReminderLimit:    limit,
	}
}

// Create raises an invoice against a pending delivery note and marks the
// delivery note done.
func (s *Service) Create(ctx context.Context, actor id.ID, req CreateRequest) (*SalesInvoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.NewInvalidData().WithCause(err)
	}
	for _, r := range req.Items {
		if r.Quantity.IsNegative() {
			return nil, apperror.NewInvalidData().WithDetail("itemId", r.ItemID)
		}
	}

	var inv *SalesInvoice
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		dn, err := s.deliveryNotes.GetPendingForUpdate(ctx, req.FormID)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNotFound {
				return appErr.WithMessage(delivery_note.ErrReferenceNotPending)
			}
			return err
		}
		if err := s.workflow.CheckCreate(ctx, actor, dn.Form.BranchID, dn.WarehouseID, req.RequestApprovalTo); err != nil {
			return err
		}

		cust, err := s.customers.GetByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		now := s.now()
		docID := id.New()
		inv = &SalesInvoice{
			ID:              docID,
			WarehouseID:     dn.WarehouseID,
			CustomerID:      cust.ID,
			ReferenceFormID: dn.Form.ID,
			Snapshot:        cust.Snapshot(),
			DueDate:         req.DueDate,
			TypeOfTax:       req.TypeOfTax,
			DiscountPercent: req.DiscountPercent,
			DiscountValue:   req.DiscountValue,
		}
		if inv.Items, err = s.buildItems(ctx, docID, req.Items); err != nil {
			return err
		}
		if err := s.checkStock(ctx, inv, now); err != nil {
			return err
		}
		inv.Recalculate()

		number, err := s.numbers.GetNextNumber(ctx, NumberConfig, now)
		if err != nil {
			return err
		}
		inv.Form = form.New(DocumentType, docID, dn.Form.BranchID, actor, req.RequestApprovalTo, number, req.Notes, now)

		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}
		return s.deliveryNotes.SetDone(ctx, dn.Form.ID, true)
	})
	s.workflow.Created(ctx, actor, inv, err)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sales invoice created",
		"id", inv.ID,
		"number", inv.Form.Number,
		"amount", inv.Amount.String(),
	)
	return inv, nil
}

func (s *Service) buildItems(ctx context.Context, docID id.ID, reqs []ItemRequest) ([]Item, error) {
	items := make([]Item, 0, len(reqs))
	for _, r := range reqs {
		it, err := s.items.GetByID(ctx, r.ItemID)
		if err != nil {
			return nil, err
		}
		if _, ok := it.UnitByLabel(r.Unit); !ok {
			return nil, apperror.NewInvalidData().
				WithMessage("Item unit " + r.Unit + " not found").
				WithDetail("itemId", r.ItemID)
		}
		items = append(items, Item{
			ID:               id.New(),
			SalesInvoiceID:   docID,
			ItemID:           r.ItemID,
			ReferenceItemID:  r.ReferenceItemID,
			AllocationID:     r.AllocationID,
			Quantity:         *r.Quantity,
			Unit:             r.Unit,
			Converter:        *r.Converter,
			Price:            *r.Price,
			DiscountPercent:  r.DiscountPercent,
			DiscountValue:    r.DiscountValue,
			ExpiryDate:       r.ExpiryDate,
			ProductionNumber: r.ProductionNumber,
		})
	}
	return items, nil
}

// checkStock requires enough stock of every lot as of at. Lines of the same
// lot draw from one balance.
func (s *Service) checkStock(ctx context.Context, inv *SalesInvoice, at time.Time) error {
	return s.engine.Walk(ctx, inv.WarehouseID, inv.StockLines(), at,
		func(_ int, it *item.Item, ln posting.StockLine, current types.Quantity) (types.Quantity, error) {
			final := current + ln.Quantity
			if final.IsNegative() {
				return 0, apperror.NewInsufficientStock(it.Name, ln.Quantity.Abs().String(), current.String()).
					WithDetail("itemId", it.ID)
			}
			return final, nil
		})
}

// Update reprices lines, recalculates the totals and puts the invoice back
// to pending. Postings of a previous approval are reversed.
func (s *Service) Update(ctx context.Context, actor, docID id.ID, req UpdateRequest) (*SalesInvoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.NewInvalidData().WithCause(err)
	}

	var inv *SalesInvoice
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.repo.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		if err := s.workflow.CheckEdit(ctx, actor, inv, req.RequestApprovalTo); err != nil {
			return err
		}

		if err := applyEdits(inv, req.Items); err != nil {
			return err
		}
		inv.DueDate = req.DueDate
		inv.TypeOfTax = req.TypeOfTax
		inv.DiscountPercent = req.DiscountPercent
		inv.DiscountValue = req.DiscountValue
		inv.Recalculate()

		if err := s.engine.Reverse(ctx, inv.Form.ID); err != nil {
			return err
		}
		inv.ClearSnapshots()

		inv.Form.ResetForEdit(actor, req.RequestApprovalTo, req.Notes, s.now())
		if err := s.repo.Save(ctx, inv); err != nil {
			return err
		}
		return s.repo.SaveForm(ctx, &inv.Form)
	})
	s.workflow.Edited(ctx, actor, inv, err)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func applyEdits(inv *SalesInvoice, edits []ItemEdit) error {
	index := make(map[id.ID]int, len(inv.Items))
	for i := range inv.Items {
		index[inv.Items[i].ID] = i
	}
	for _, e := range edits {
		i, ok := index[e.SalesInvoiceItemID]
		if !ok {
			return apperror.NewNotFound("Sales invoice item", e.SalesInvoiceItemID)
		}
		inv.Items[i].Price = *e.Price
		inv.Items[i].DiscountPercent = e.DiscountPercent
		inv.Items[i].DiscountValue = e.DiscountValue
	}
	return nil
}

// releaseReference makes the delivery note invoiceable again.
func (s *Service) releaseReference(ctx context.Context, inv *SalesInvoice) error {
	return s.deliveryNotes.SetDone(ctx, inv.ReferenceFormID, false)
}

// Approve posts the invoice.
func (s *Service) Approve(ctx context.Context, actor, docID id.ID) (*SalesInvoice, error) {
	return s.workflow.Approve(ctx, actor, docID)
}

// Reject rejects the invoice.
func (s *Service) Reject(ctx context.Context, actor, docID id.ID, reason string) (*SalesInvoice, error) {
	return s.workflow.Reject(ctx, actor, docID, reason)
}

// RequestCancellation asks the approver to cancel the invoice.
func (s *Service) RequestCancellation(ctx context.Context, actor, docID id.ID, reason string) (*SalesInvoice, error) {
	return s.workflow.RequestCancellation(ctx, actor, docID, reason)
}

// ApproveCancellation cancels the invoice, reverses its postings and
// releases the delivery note.
func (s *Service) ApproveCancellation(ctx context.Context, actor, docID id.ID) (*SalesInvoice, error) {
	return s.workflow.ApproveCancellation(ctx, actor, docID)
}

func (s *Service) RejectCancellation(ctx context.Context, actor, docID id.ID, reason string) (*SalesInvoice, error) {
	return s.workflow.RejectCancellation(ctx, actor, docID, reason)
}

func (s *Service) FindOne(ctx context.Context, docID id.ID) (*SalesInvoice, error) {
	return s.repo.GetByID(ctx, docID)
}

// FindAll lists invoices.
func (s *Service) FindAll(ctx context.Context, q domain.ListQuery) (domain.ListResult[*SalesInvoice], error) {
	filter, err := q.Normalize(s.now())
	if err != nil {
		return domain.ListResult[*SalesInvoice]{}, err
	}
	return s.repo.List(ctx, filter)
}
