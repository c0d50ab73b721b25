package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/authz"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// DocumentService is what a maker-checker document exposes over HTTP.
// C and U are the create and update requests.
type DocumentService[T, C, U any] interface {
	Create(ctx context.Context, actor id.ID, req C) (T, error)
	Update(ctx context.Context, actor, docID id.ID, req U) (T, error)
	Approve(ctx context.Context, actor, docID id.ID) (T, error)
	Reject(ctx context.Context, actor, docID id.ID, reason string) (T, error)
	RequestCancellation(ctx context.Context, actor, docID id.ID, reason string) (T, error)
	ApproveCancellation(ctx context.Context, actor, docID id.ID) (T, error)
	RejectCancellation(ctx context.Context, actor, docID id.ID, reason string) (T, error)
	FindOne(ctx context.Context, docID id.ID) (T, error)
	FindAll(ctx context.Context, q domain.ListQuery) (domain.ListResult[T], error)
}

// PermissionChecker authorizes reads. Writes are authorized by the
// services themselves.
type PermissionChecker interface {
	Check(ctx context.Context, actor id.ID, permission string) error
}

// DocumentHandler serves one document type.
type DocumentHandler[T, C, U any] struct {
	*BaseHandler
	service DocumentService[T, C, U]
	perms   PermissionChecker
	label   string
}

// NewDocumentHandler creates a handler. label is the permission label of
// the document, e.g. "stock correction".
func NewDocumentHandler[T, C, U any](base *BaseHandler, service DocumentService[T, C, U], perms PermissionChecker, label string) *DocumentHandler[T, C, U] {
	return &DocumentHandler[T, C, U]{BaseHandler: base, service: service, perms: perms, label: label}
}

// List handles GET /.
func (h *DocumentHandler[T, C, U]) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok || !h.canRead(c, actor) {
		return
	}

	var params dto.ListParams
	if !h.BindQuery(c, &params) {
		return
	}
	q, err := params.ToQuery()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.FindAll(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(result))
}

// Get handles GET /:id.
func (h *DocumentHandler[T, C, U]) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok || !h.canRead(c, actor) {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	doc, err := h.service.FindOne(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Create handles POST /.
func (h *DocumentHandler[T, C, U]) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req C
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Update handles PATCH /:id.
func (h *DocumentHandler[T, C, U]) Update(c *gin.Context) {
	actor, docID, ok := h.target(c)
	if !ok {
		return
	}
	var req U
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Update(c.Request.Context(), actor, docID, req)
	h.respond(c, doc, err)
}

// Approve handles POST /:id/approve.
func (h *DocumentHandler[T, C, U]) Approve(c *gin.Context) {
	actor, docID, ok := h.target(c)
	if !ok {
		return
	}
	doc, err := h.service.Approve(c.Request.Context(), actor, docID)
	h.respond(c, doc, err)
}

// Reject handles POST /:id/reject.
func (h *DocumentHandler[T, C, U]) Reject(c *gin.Context) {
	actor, docID, reason, ok := h.targetWithReason(c)
	if !ok {
		return
	}
	doc, err := h.service.Reject(c.Request.Context(), actor, docID, reason)
	h.respond(c, doc, err)
}

// RequestCancellation handles DELETE /:id.
func (h *DocumentHandler[T, C, U]) RequestCancellation(c *gin.Context) {
	actor, docID, reason, ok := h.targetWithReason(c)
	if !ok {
		return
	}
	doc, err := h.service.RequestCancellation(c.Request.Context(), actor, docID, reason)
	h.respond(c, doc, err)
}

// ApproveCancellation handles POST /:id/cancellation-approve.
func (h *DocumentHandler[T, C, U]) ApproveCancellation(c *gin.Context) {
	actor, docID, ok := h.target(c)
	if !ok {
		return
	}
	doc, err := h.service.ApproveCancellation(c.Request.Context(), actor, docID)
	h.respond(c, doc, err)
}

// RejectCancellation handles POST /:id/cancellation-reject.
func (h *DocumentHandler[T, C, U]) RejectCancellation(c *gin.Context) {
	actor, docID, reason, ok := h.targetWithReason(c)
	if !ok {
		return
	}
	doc, err := h.service.RejectCancellation(c.Request.Context(), actor, docID, reason)
	h.respond(c, doc, err)
}

// RegisterRoutes mounts the document routes on rg.
func (h *DocumentHandler[T, C, U]) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.RequestCancellation)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/cancellation-approve", h.ApproveCancellation)
	rg.POST("/:id/cancellation-reject", h.RejectCancellation)
}

func (h *DocumentHandler[T, C, U]) canRead(c *gin.Context, actor id.ID) bool {
	if err := h.perms.Check(c.Request.Context(), actor, authz.Permission(authz.ActionRead, h.label)); err != nil {
		h.Error(c, err)
		return false
	}
	return true
}

func (h *DocumentHandler[T, C, U]) target(c *gin.Context) (id.ID, id.ID, bool) {
	actor, ok := h.Actor(c)
	if !ok {
		return id.Nil(), id.Nil(), false
	}
	docID, ok := h.ParamID(c)
	return actor, docID, ok
}

// targetWithReason also reads the optional {reason} body. An empty body is
// an empty reason.
func (h *DocumentHandler[T, C, U]) targetWithReason(c *gin.Context) (id.ID, id.ID, string, bool) {
	actor, docID, ok := h.target(c)
	if !ok {
		return actor, docID, "", false
	}
	var req dto.ReasonRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return actor, docID, "", false
	}
	return actor, docID, req.Reason, true
}

func (h *DocumentHandler[T, C, U]) respond(c *gin.Context, doc T, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
