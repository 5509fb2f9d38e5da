package handler

import (
	"github.com/erp/tradedesk/internal/application/composition"
	"github.com/erp/tradedesk/internal/infrastructure/logger"
	"github.com/erp/tradedesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CompositionHandler serves order composition sessions and the lookups
// an order form needs while it is being filled in
type CompositionHandler struct {
	BaseHandler
	service *composition.Service
}

// NewCompositionHandler creates a new CompositionHandler
func NewCompositionHandler(service *composition.Service, l *zap.Logger) *CompositionHandler {
	return &CompositionHandler{
		BaseHandler: newBaseHandler(l),
		service:     service,
	}
}

// RegisterRoutes registers the composition endpoints
func (h *CompositionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/compositions")
	sessions.POST("", h.Open)
	sessions.DELETE("/:id", h.Close)
	sessions.POST("/:id/recompute", h.Recompute)
	sessions.POST("/:id/submit", h.Submit)

	rg.GET("/batches/available", h.AvailableBatches)
	rg.GET("/deduction-formulas", h.ListFormulas)
	rg.POST("/deduction-formulas/calculate", h.CalculateNetWeight)
	rg.GET("/orders/:id/returnable", h.Returnable)
	rg.POST("/orders/:id/return-draft", h.ReturnDraft)
	rg.POST("/storage-fee/preview", h.PreviewStorageFee)
}

// Open godoc
// @Summary      Open a composition session
// @Tags         compositions
// @Success      201 {object} dto.Response
// @Router       /compositions [post]
func (h *CompositionHandler) Open(c *gin.Context) {
	h.Created(c, h.service.Open(c.Request.Context()))
}

// Close godoc
// @Summary      Discard a composition session
// @Tags         compositions
// @Param        id path string true "Session ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Router       /compositions/{id} [delete]
func (h *CompositionHandler) Close(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.service.Close(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Recompute godoc
// @Summary      Recompute a draft order
// @Description  Derives conversions, net weights, batch suggestions, fees and totals and lists every issue found
// @Tags         compositions
// @Param        id path string true "Session ID"
// @Param        request body composition.DraftOrderInput true "Draft order"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /compositions/{id}/recompute [post]
func (h *CompositionHandler) Recompute(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req composition.DraftOrderInput
	if !h.bindJSON(c, &req) {
		return
	}
	draft, err := req.ToDomain(h.service.Location())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp, err := h.service.Recompute(c.Request.Context(), id, draft)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Submit godoc
// @Summary      Submit a draft order
// @Description  Stores the order as completed when no blocking issue remains and closes the session
// @Tags         compositions
// @Param        id path string true "Session ID"
// @Param        request body composition.DraftOrderInput true "Draft order"
// @Success      201 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /compositions/{id}/submit [post]
func (h *CompositionHandler) Submit(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req composition.DraftOrderInput
	if !h.bindJSON(c, &req) {
		return
	}
	draft, err := req.ToDomain(h.service.Location())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp, err := h.service.Submit(c.Request.Context(), id, draft)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// availableBatchesQuery is the query string of AvailableBatches; form
// binding cannot decode UUIDs directly
type availableBatchesQuery struct {
	ProductID   string `form:"product_id" binding:"required,uuid"`
	SpecID      string `form:"spec_id" binding:"omitempty,uuid"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
	Quantity    string `form:"quantity" binding:"omitempty,numeric"`
}

func (q availableBatchesQuery) toQuery() (composition.AvailableBatchesQuery, error) {
	out := composition.AvailableBatchesQuery{
		ProductID:   uuid.MustParse(q.ProductID),
		WarehouseID: uuid.MustParse(q.WarehouseID),
	}
	if q.SpecID != "" {
		id := uuid.MustParse(q.SpecID)
		out.SpecID = &id
	}
	if q.Quantity != "" {
		qty, err := decimal.NewFromString(q.Quantity)
		if err != nil {
			return out, err
		}
		out.Quantity = &qty
	}
	return out, nil
}

// AvailableBatches godoc
// @Summary      List selectable batches
// @Description  Batches of the line's pool in FIFO order; a quantity adds the FIFO split
// @Tags         batches
// @Param        product_id   query string true  "Product ID"
// @Param        spec_id      query string false "Packaging spec ID"
// @Param        warehouse_id query string true  "Warehouse ID"
// @Param        quantity     query number false "Quantity to plan in base units"
// @Success      200 {object} dto.Response
// @Router       /batches/available [get]
func (h *CompositionHandler) AvailableBatches(c *gin.Context) {
	var raw availableBatchesQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		if details := middleware.ValidationDetails(err); details != nil {
			h.ValidationError(c, details)
			return
		}
		h.BadRequest(c, err.Error())
		return
	}
	q, err := raw.toQuery()
	if err != nil {
		h.BadRequest(c, "Invalid quantity")
		return
	}
	resp, err := h.service.AvailableBatches(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListFormulas godoc
// @Summary      List deduction formulas
// @Tags         deduction-formulas
// @Success      200 {object} dto.Response
// @Router       /deduction-formulas [get]
func (h *CompositionHandler) ListFormulas(c *gin.Context) {
	formulas, err := h.service.ListFormulas(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, formulas)
}

// CalculateNetWeight godoc
// @Summary      Calculate a net weight
// @Tags         deduction-formulas
// @Param        request body composition.CalculateNetWeightInput true "Formula and gross weight"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /deduction-formulas/calculate [post]
func (h *CompositionHandler) CalculateNetWeight(c *gin.Context) {
	var req composition.CalculateNetWeightInput
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CalculateNetWeight(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Returnable godoc
// @Summary      Remaining returnable quantities of an order
// @Tags         returns
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /orders/{id}/returnable [get]
func (h *CompositionHandler) Returnable(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.Returnable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReturnDraft godoc
// @Summary      Draft a full return of an order
// @Description  The draft is not stored; recompute and submit it through a session
// @Tags         returns
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /orders/{id}/return-draft [post]
func (h *CompositionHandler) ReturnDraft(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	draft, err := h.service.FullReturnDraft(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, composition.DraftFromDomain(draft, h.service.Location()))
}

// PreviewStorageFee godoc
// @Summary      Estimate a storage fee
// @Description  Zero days uses the configured default
// @Tags         storage-fee
// @Param        request body composition.StorageFeePreviewInput true "Weight and days"
// @Success      200 {object} dto.Response
// @Router       /storage-fee/preview [post]
func (h *CompositionHandler) PreviewStorageFee(c *gin.Context) {
	var req composition.StorageFeePreviewInput
	if !h.bindJSON(c, &req) {
		return
	}
	h.Success(c, h.service.PreviewStorageFee(req))
}

// sessionID parses the session path parameter and tags the request
// context with it
func (h *CompositionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := h.pathID(c)
	if !ok {
		return uuid.Nil, false
	}
	c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), id.String()))
	return id, true
}
