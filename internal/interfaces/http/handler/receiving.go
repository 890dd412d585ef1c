package handler

import (
	"context"
	"strconv"

	appreceiving "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/infrastructure/logger"
	"github.com/erp/receiving/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader lets clients retry a commit without posting it twice
const IdempotencyKeyHeader = "Idempotency-Key"

// ReceivingService is the application service behind the receiving endpoints
type ReceivingService interface {
	ListOutstandingOrders(ctx context.Context) ([]appreceiving.OrderSummaryResponse, error)
	GetOrderHeader(ctx context.Context, orderID uuid.UUID) (*appreceiving.OrderHeaderResponse, error)
	GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]appreceiving.OrderLineResponse, error)
	GetOrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]appreceiving.OrderLineResponse, error)
	OpenSession(ctx context.Context, orderID uuid.UUID) (*appreceiving.SessionResponse, error)
	BuildBatch(ctx context.Context, orderID uuid.UUID, in appreceiving.BatchInput) (receiving.Batch, error)
	ValidateBatch(ctx context.Context, orderID uuid.UUID, in appreceiving.BatchInput, edit *appreceiving.EditInput) (*appreceiving.ValidateResponse, error)
	CommitReceiptBatch(ctx context.Context, cmd appreceiving.CommitCommand) (*appreceiving.CommitResult, error)
	ForceClose(ctx context.Context, cmd appreceiving.ForceCloseCommand) (*appreceiving.ForceCloseResult, error)
}

// ReceivingHandler handles the purchase order receiving endpoints
type ReceivingHandler struct {
	BaseHandler
	service ReceivingService
}

// NewReceivingHandler creates a new ReceivingHandler
func NewReceivingHandler(service ReceivingService) *ReceivingHandler {
	return &ReceivingHandler{service: service}
}

// LineEditRequest is the session state of one order line
// @Description Session fields of one order line
type LineEditRequest struct {
	LineID          string `json:"line_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	PartID          string `json:"part_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	Received        int    `json:"received" example:"4"`
	Returned        int    `json:"returned" example:"0"`
	Reason          string `json:"reason" binding:"max=2000"`
	OrderQty        *int   `json:"order_qty" example:"10"`
	OutstandingBase *int   `json:"outstanding_base" example:"10"`
}

// UnorderedItemRequest is an item received without an order line
// @Description Unordered item
type UnorderedItemRequest struct {
	Description  string `json:"description" binding:"max=500" example:"Gasket, 40mm"`
	VendorPartID string `json:"vendor_part_id" binding:"max=100" example:"VG-40"`
	Quantity     int    `json:"quantity" example:"2"`
}

// BatchRequest is the full state of a client-held receiving session
// @Description Receiving session state
type BatchRequest struct {
	Lines            []LineEditRequest      `json:"lines" binding:"dive"`
	Unordered        []UnorderedItemRequest `json:"unordered" binding:"dive"`
	Draft            *UnorderedItemRequest  `json:"draft"`
	ForceCloseReason string                 `json:"force_close_reason" binding:"max=2000"`
}

// EditRequest is a single live field edit. Without line_id it targets the
// draft unordered item or the force close reason.
// @Description Single field edit applied before validation
type EditRequest struct {
	LineID   string `json:"line_id" binding:"omitempty,uuid"`
	Field    string `json:"field" binding:"required,oneof=received returned reason description vendor_part_id quantity force_close_reason"`
	Quantity int    `json:"quantity"`
	Text     string `json:"text" binding:"max=2000"`
}

// ValidateRequest validates a session, optionally after applying one edit
// @Description Live validation request
type ValidateRequest struct {
	BatchRequest
	Edit *EditRequest `json:"edit"`
}

// ForceCloseRequest closes an order, committing the staged session first when given
// @Description Force close request
type ForceCloseRequest struct {
	Reason string        `json:"reason" example:"Vendor cancelled remaining quantity"`
	Batch  *BatchRequest `json:"batch"`
}

// RegisterRoutes registers the receiving routes under /receiving
func (h *ReceivingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := router.NewDomainGroup("receiving", "/receiving")
	g.GET("/orders", h.ListOutstandingOrders)
	g.GET("/orders/:id", h.GetOrderHeader)
	g.GET("/orders/:id/lines", h.GetOrderLines)
	g.GET("/orders/:id/session", h.OpenSession)
	g.POST("/orders/:id/validate", h.ValidateBatch)
	g.POST("/orders/:id/receipts", h.CommitReceiptBatch)
	g.POST("/orders/:id/force-close", h.ForceClose)
	g.RegisterRoutes(rg)
}

// ListOutstandingOrders godoc
// @ID           listOutstandingOrders
// @Summary      List outstanding purchase orders
// @Description  Open, visible, dated orders, newest first
// @Tags         receiving
// @Produce      json
// @Success      200 {object} APIResponse[[]appreceiving.OrderSummaryResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /receiving/orders [get]
func (h *ReceivingHandler) ListOutstandingOrders(c *gin.Context) {
	orders, err := h.service.ListOutstandingOrders(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, orders, len(orders))
}

// GetOrderHeader godoc
// @ID           getReceivingOrderHeader
// @Summary      Get a purchase order header
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Success      200 {object} APIResponse[appreceiving.OrderHeaderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /receiving/orders/{id} [get]
func (h *ReceivingHandler) GetOrderHeader(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	header, err := h.service.GetOrderHeader(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, header)
}

// GetOrderLines godoc
// @ID           getReceivingOrderLines
// @Summary      Get the ledger lines of a purchase order
// @Description  fresh=true bypasses the ledger cache
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Param        fresh query bool false "Read the ledger directly"
// @Success      200 {object} APIResponse[[]appreceiving.OrderLineResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /receiving/orders/{id}/lines [get]
func (h *ReceivingHandler) GetOrderLines(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	fresh, _ := strconv.ParseBool(c.Query("fresh"))

	read := h.service.GetOrderLines
	if fresh {
		read = h.service.GetOrderLinesFresh
	}
	lines, err := read(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, lines, len(lines))
}

// OpenSession godoc
// @ID           openReceivingSession
// @Summary      Open a receiving session
// @Description  Fresh ledger lines with editable fields cleared and outstanding snapshotted
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Success      200 {object} APIResponse[appreceiving.SessionResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /receiving/orders/{id}/session [get]
func (h *ReceivingHandler) OpenSession(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	session, err := h.service.OpenSession(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// ValidateBatch godoc
// @ID           validateReceivingBatch
// @Summary      Validate a receiving session
// @Description  Applies the optional edit, then reports every field error. Nothing is written.
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Param        request body ValidateRequest true "Session state"
// @Success      200 {object} APIResponse[appreceiving.ValidateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /receiving/orders/{id}/validate [post]
func (h *ReceivingHandler) ValidateBatch(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	var edit *appreceiving.EditInput
	if req.Edit != nil {
		edit = &appreceiving.EditInput{
			LineID:   parseOptionalID(req.Edit.LineID),
			Field:    req.Edit.Field,
			Quantity: req.Edit.Quantity,
			Text:     req.Edit.Text,
		}
	}

	resp, err := h.service.ValidateBatch(c.Request.Context(), orderID, req.BatchRequest.toInput(), edit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CommitReceiptBatch godoc
// @ID           commitReceiptBatch
// @Summary      Commit a receiving session
// @Description  Records receipts, returns and unordered items atomically; closes the order when nothing is outstanding
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Param        X-Employee-ID header string true "Receiving employee"
// @Param        Idempotency-Key header string false "Client request key"
// @Param        request body BatchRequest true "Session state"
// @Success      201 {object} APIResponse[appreceiving.CommitResult]
// @Success      200 {object} APIResponse[NoChangesData]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /receiving/orders/{id}/receipts [post]
func (h *ReceivingHandler) CommitReceiptBatch(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	batch, err := h.service.BuildBatch(ctx, orderID, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.service.CommitReceiptBatch(ctx, appreceiving.CommitCommand{
		OrderID:        orderID,
		EmployeeID:     c.GetHeader(logger.EmployeeIDHeader),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
		Batch:          batch,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ForceClose godoc
// @ID           forceClosePurchaseOrder
// @Summary      Force close a purchase order
// @Description  Commits the staged session, if any, and closes the order in one transaction, releasing outstanding on-order quantities
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Param        X-Employee-ID header string false "Receiving employee"
// @Param        Idempotency-Key header string false "Client request key"
// @Param        request body ForceCloseRequest true "Reason and staged session"
// @Success      200 {object} APIResponse[appreceiving.ForceCloseResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /receiving/orders/{id}/force-close [post]
func (h *ReceivingHandler) ForceClose(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID format")
		return
	}
	var req ForceCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	cmd := appreceiving.ForceCloseCommand{
		OrderID:        orderID,
		EmployeeID:     c.GetHeader(logger.EmployeeIDHeader),
		Reason:         req.Reason,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	}
	if req.Batch != nil {
		batch, err := h.service.BuildBatch(ctx, orderID, req.Batch.toInput())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		cmd.Batch = &batch
	}

	result, err := h.service.ForceClose(ctx, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// toInput converts a bound request. Ids were validated by binding.
func (r BatchRequest) toInput() appreceiving.BatchInput {
	in := appreceiving.BatchInput{
		Lines:            make([]appreceiving.LineEditInput, len(r.Lines)),
		Unordered:        make([]appreceiving.UnorderedItemInput, len(r.Unordered)),
		ForceCloseReason: r.ForceCloseReason,
	}
	for i, l := range r.Lines {
		in.Lines[i] = appreceiving.LineEditInput{
			LineID:          uuid.MustParse(l.LineID),
			PartID:          parseOptionalID(l.PartID),
			Received:        l.Received,
			Returned:        l.Returned,
			Reason:          l.Reason,
			OrderQty:        l.OrderQty,
			OutstandingBase: l.OutstandingBase,
		}
	}
	for i, u := range r.Unordered {
		in.Unordered[i] = u.toInput()
	}
	if r.Draft != nil {
		draft := r.Draft.toInput()
		in.Draft = &draft
	}
	return in
}

func (r UnorderedItemRequest) toInput() appreceiving.UnorderedItemInput {
	return appreceiving.UnorderedItemInput{
		Description:  r.Description,
		VendorPartID: r.VendorPartID,
		Quantity:     r.Quantity,
	}
}

func parseOptionalID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	return uuid.MustParse(s)
}
