package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ticketing-service/internal/models"
	"ticketing-service/internal/service"
	"ticketing-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	engine   *service.ReservationEngine
	approval *service.ApprovalWorkflow
	catalog  *service.CatalogService
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *service.ReservationEngine, approval *service.ApprovalWorkflow, catalog *service.CatalogService) *Handler {
	return &Handler{
		engine:   engine,
		approval: approval,
		catalog:  catalog,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.purchase)
		v1.GET("/orders/:id", h.getOrder)

		v1.GET("/events", h.listPublishedEvents)
		v1.GET("/events/:id", h.getEvent)
		v1.GET("/events/:id/ticket-types", h.listTicketTypes)
		v1.GET("/ticket-types/:id/availability", h.availability)

		admin := v1.Group("/admin")
		{
			admin.GET("/orders/pending", h.listPendingOrders)
			admin.PUT("/orders/:id/approve", h.approveOrder)
			admin.PUT("/orders/:id/reject", h.rejectOrder)

			admin.GET("/events", h.listAdminEvents)
			admin.POST("/events", h.createEvent)
			admin.PUT("/events/:id", h.updateEvent)
			admin.PUT("/events/:id/status", h.updateEventStatus)
			admin.DELETE("/events/:id", h.deleteEvent)
			admin.POST("/events/:id/ticket-types", h.createTicketType)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// PurchaseRequest represents a purchase request against a ticket type.
// UserID arrives as an explicit parameter; session handling lives in the
// auth layer in front of this service.
type PurchaseRequest struct {
	TicketTypeID   int64  `json:"ticket_type_id" binding:"required"`
	UserID         int64  `json:"user_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// purchase reserves stock and creates a pending order
func (h *Handler) purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.engine.Reserve(c.Request.Context(), req.TicketTypeID, req.UserID, req.Quantity, req.IdempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": order.ID,
		"status":   order.Status,
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.engine.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// listPendingOrders lists pending orders for events owned by the admin
func (h *Handler) listPendingOrders(c *gin.Context) {
	adminID, ok := queryAdminID(c)
	if !ok {
		return
	}

	pending, err := h.approval.ListPending(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": pending})
}

// AdminActionRequest identifies the admin performing an approval action
type AdminActionRequest struct {
	AdminID int64 `json:"admin_id" binding:"required"`
}

// approveOrder finalizes a pending order as approved
func (h *Handler) approveOrder(c *gin.Context) {
	h.finalizeOrder(c, h.approval.Approve)
}

// rejectOrder finalizes a pending order as rejected, restoring stock
func (h *Handler) rejectOrder(c *gin.Context) {
	h.finalizeOrder(c, h.approval.Reject)
}

func (h *Handler) finalizeOrder(c *gin.Context, action func(ctx context.Context, orderID, adminID int64) (*models.Order, error)) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req AdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := action(c.Request.Context(), orderID, req.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.ID,
		"status":   order.Status,
	})
}

// listPublishedEvents lists published events, optionally by category
func (h *Handler) listPublishedEvents(c *gin.Context) {
	events, err := h.catalog.ListPublished(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// getEvent retrieves a single event
func (h *Handler) getEvent(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	event, err := h.catalog.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// listTicketTypes lists the ticket types of an event
func (h *Handler) listTicketTypes(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	tts, err := h.catalog.ListTicketTypes(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket_types": tts})
}

// availability reports remaining stock and units sold for a ticket type
func (h *Handler) availability(c *gin.Context) {
	ticketTypeID, ok := pathID(c)
	if !ok {
		return
	}

	stock, sold, err := h.catalog.Availability(c.Request.Context(), ticketTypeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket_type_id": ticketTypeID,
		"stock":          stock,
		"sold":           sold,
	})
}

// listAdminEvents lists all events owned by the admin
func (h *Handler) listAdminEvents(c *gin.Context) {
	adminID, ok := queryAdminID(c)
	if !ok {
		return
	}

	events, err := h.catalog.ListByAdmin(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// EventRequest carries event fields for create and update
type EventRequest struct {
	AdminID     int64     `json:"admin_id" binding:"required"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Poster      string    `json:"poster"`
	Status      string    `json:"status"`
}

func (r *EventRequest) input() service.CreateEventInput {
	return service.CreateEventInput{
		Category:    r.Category,
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
		Location:    r.Location,
		Poster:      r.Poster,
		Status:      r.Status,
	}
}

// createEvent creates a new event owned by the admin
func (h *Handler) createEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event, err := h.catalog.CreateEvent(c.Request.Context(), req.AdminID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// updateEvent updates event metadata
func (h *Handler) updateEvent(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event, err := h.catalog.UpdateEvent(c.Request.Context(), req.AdminID, eventID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// EventStatusRequest carries a status transition for an event
type EventStatusRequest struct {
	AdminID int64  `json:"admin_id" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// updateEventStatus toggles an event between draft and published
func (h *Handler) updateEventStatus(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	var req EventStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.catalog.UpdateEventStatus(c.Request.Context(), req.AdminID, eventID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "status": req.Status})
}

// deleteEvent deletes an event and its ticket types
func (h *Handler) deleteEvent(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	adminID, ok := queryAdminID(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteEvent(c.Request.Context(), adminID, eventID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": eventID})
}

// TicketTypeRequest carries fields of a new ticket type
type TicketTypeRequest struct {
	AdminID      int64           `json:"admin_id" binding:"required"`
	Label        string          `json:"label" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	InitialStock int             `json:"initial_stock"`
}

// createTicketType creates a new ticket type under an event
func (h *Handler) createTicketType(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	var req TicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	tt, err := h.catalog.CreateTicketType(c.Request.Context(), req.AdminID, eventID, req.Label, req.Price, req.InitialStock)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tt)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

func queryAdminID(c *gin.Context) (int64, bool) {
	adminID, err := strconv.ParseInt(c.Query("admin_id"), 10, 64)
	if err != nil || adminID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin_id"})
		return 0, false
	}
	return adminID, true
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrOutOfStock),
		errors.Is(err, models.ErrAlreadyFinalized),
		errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidCategory),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}
