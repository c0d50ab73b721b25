package stock_correction

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
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/form"
	"backoffice/internal/domain/posting"
	"backoffice/pkg/logger"
)

// CreateRequest is the input of Create.
type CreateRequest struct {
	WarehouseID       id.ID         `json:"warehouseId" validate:"required"`
	RequestApprovalTo id.ID         `json:"requestApprovalTo" validate:"required"`
	Notes             string        `json:"notes"`
	Items             []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequest is the input of Update. The warehouse cannot change.
type UpdateRequest struct {
	RequestApprovalTo id.ID         `json:"requestApprovalTo" validate:"required"`
	Notes             string        `json:"notes"`
	Items             []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemRequest is one requested line.
type ItemRequest struct {
	ItemID           id.ID            `json:"itemId" validate:"required"`
	Unit             string           `json:"unit" validate:"required"`
	Converter        *decimal.Decimal `json:"converter" validate:"required"`
	Quantity         *types.Quantity  `json:"quantity" validate:"required"`
	ExpiryDate       *time.Time       `json:"expiryDate"`
	ProductionNumber *string          `json:"productionNumber"`
	Notes            *string          `json:"notes"`
}

var one = decimal.NewFromInt(1)

// Service implements the stock correction operations.
type Service struct {
	repo       Repository
	workflow   *approval.Workflow[*StockCorrection]
	tx         tx.Manager
	warehouses warehouse.Repository
	items      item.Repository
	engine     *posting.Engine
	numbers    numerator.Generator
	validate   *validator.Validate
	now        func() time.Time
}

// Deps are the collaborators of the service.
type Deps struct {
	Repo       Repository
	Tx         tx.Manager
	Warehouses warehouse.Repository
	Items      item.Repository
	Engine     *posting.Engine
	Numbers    numerator.Generator
	Now        func() time.Time
}

// NewService creates the service. flow must be built on the same repository.
func NewService(deps Deps, flow *approval.Workflow[*StockCorrection]) *Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:       deps.Repo,
		workflow:   flow,
		tx:         deps.Tx,
		warehouses: deps.Warehouses,
		items:      deps.Items,
		engine:     deps.Engine,
		numbers:    deps.Numbers,
		validate:   validator.New(),
		now:        now,
	}
}

// WorkflowConfig is the lifecycle configuration of stock corrections.
func WorkflowConfig(interval time.Duration, limit int) approval.Config {
	return approval.Config{
		Label:            DocumentType,
		CancelMessage:    "Forbidden - You are not the maker of the stock correction",
		ReminderInterval: interval,
		ReminderLimit:    limit,
	}
}

// Create validates the request, allocates a number and stores a pending
// stock correction. The approver is notified after commit.
func (s *Service) Create(ctx context.Context, actor id.ID, req CreateRequest) (*StockCorrection, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.NewInvalidData().WithCause(err)
	}

	var sc *StockCorrection
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		wh, err := s.warehouses.GetByID(ctx, req.WarehouseID)
		if err != nil {
			return err
		}
		if err := s.workflow.CheckCreate(ctx, actor, wh.BranchID, wh.ID, req.RequestApprovalTo); err != nil {
			return err
		}

		now := s.now()
		docID := id.New()
		items, err := s.buildItems(ctx, docID, wh.ID, req.Items, now)
		if err != nil {
			return err
		}

		number, err := s.numbers.GetNextNumber(ctx, NumberConfig, now)
		if err != nil {
			return err
		}

		sc = &StockCorrection{
			ID:          docID,
			WarehouseID: wh.ID,
			Form:        form.New(DocumentType, docID, wh.BranchID, actor, req.RequestApprovalTo, number, req.Notes, now),
			Items:       items,
		}
		return s.repo.Create(ctx, sc)
	})
	s.workflow.Created(ctx, actor, sc, err)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock correction created", "id", sc.ID, "number", sc.Form.Number)
	return sc, nil
}

// Update replaces the lines of a document and puts it back to pending.
// Postings of a previous approval are reversed in the same transaction.
func (s *Service) Update(ctx context.Context, actor, docID id.ID, req UpdateRequest) (*StockCorrection, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.NewInvalidData().WithCause(err)
	}

	var sc *StockCorrection
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if sc, err = s.repo.GetForUpdate(ctx, docID); err != nil {
			return err
		}
		if err := s.workflow.CheckEdit(ctx, actor, sc, req.RequestApprovalTo); err != nil {
			return err
		}

		if err := s.engine.Reverse(ctx, sc.Form.ID); err != nil {
			return err
		}

		now := s.now()
		sc.Form.ResetForEdit(actor, req.RequestApprovalTo, req.Notes, now)
		if err := s.repo.SaveForm(ctx, &sc.Form); err != nil {
			return err
		}

		if sc.Items, err = s.buildItems(ctx, sc.ID, sc.WarehouseID, req.Items, now); err != nil {
			return err
		}
		return s.repo.ReplaceItems(ctx, sc)
	})
	s.workflow.Edited(ctx, actor, sc, err)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// buildItems validates requested lines: the item exists, only the base unit
// is used and a decrease does not take stock below zero as of at.
func (s *Service) buildItems(ctx context.Context, docID, warehouseID id.ID, reqs []ItemRequest, at time.Time) ([]Item, error) {
	items := make([]Item, 0, len(reqs))
	for _, r := range reqs {
		if _, err := s.items.GetByID(ctx, r.ItemID); err != nil {
			return nil, err
		}
		if !r.Converter.Equal(one) {
			return nil, apperror.NewOnlySmallestUnit().WithDetail("itemId", r.ItemID)
		}
		items = append(items, Item{
			ID:                id.New(),
			StockCorrectionID: docID,
			ItemID:            r.ItemID,
			Unit:              r.Unit,
			Converter:         *r.Converter,
			Quantity:          *r.Quantity,
			ExpiryDate:        r.ExpiryDate,
			ProductionNumber:  r.ProductionNumber,
			Notes:             r.Notes,
		})
	}

	draft := &StockCorrection{WarehouseID: warehouseID, Items: items}
	if err := s.engine.CheckStock(ctx, warehouseID, draft.StockLines(), at); err != nil {
		return nil, err
	}
	return items, nil
}

// Approve posts the document.
func (s *Service) Approve(ctx context.Context, actor, docID id.ID) (*StockCorrection, error) {
	return s.workflow.Approve(ctx, actor, docID)
}

// Reject rejects the document.
func (s *Service) Reject(ctx context.Context, actor, docID id.ID, reason string) (*StockCorrection, error) {
	return s.workflow.Reject(ctx, actor, docID, reason)
}

// RequestCancellation asks the approver to cancel the document.
func (s *Service) RequestCancellation(ctx context.Context, actor, docID id.ID, reason string) (*StockCorrection, error) {
	return s.workflow.RequestCancellation(ctx, actor, docID, reason)
}

// ApproveCancellation cancels the document and reverses its postings.
func (s *Service) ApproveCancellation(ctx context.Context, actor, docID id.ID) (*StockCorrection, error) {
	return s.workflow.ApproveCancellation(ctx, actor, docID)
}

// RejectCancellation keeps the document.
func (s *Service) RejectCancellation(ctx context.Context, actor, docID id.ID, reason string) (*StockCorrection, error) {
	return s.workflow.RejectCancellation(ctx, actor, docID, reason)
}

// FindOne returns a document with its lines.
func (s *Service) FindOne(ctx context.Context, docID id.ID) (*StockCorrection, error) {
	return s.repo.GetByID(ctx, docID)
}

// FindAll lists documents.
func (s *Service) FindAll(ctx context.Context, q domain.ListQuery) (domain.ListResult[*StockCorrection], error) {
	filter, err := q.Normalize(s.now())
	if err != nil {
		return domain.ListResult[*StockCorrection]{}, err
	}
	return s.repo.List(ctx, filter)
}
