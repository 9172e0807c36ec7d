package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appctx "github.com/inkpost/inkpost/server/internal/context"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/model"
	"github.com/inkpost/inkpost/server/internal/order"
	"github.com/inkpost/inkpost/server/internal/pricing"
)

// OrderHandler handles letter-order endpoints.
type OrderHandler struct {
	orderSvc order.Service
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc order.Service) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// RegisterRoutes registers order routes on the api group.
func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/orders/quote", h.Quote)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
}

// ─────────────────────────────────────────────
// POST /api/v1/orders/quote
// ─────────────────────────────────────────────

type QuoteResponse struct {
	Breakdown pricing.Breakdown `json:"breakdown"`
}

// Quote prices a cart for the review screen without charging anything.
func (h *OrderHandler) Quote(c *gin.Context) {
	var req model.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bd, err := h.orderSvc.Quote(c.Request.Context(), req.Cart())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to price order"})
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{Breakdown: bd})
}

// ─────────────────────────────────────────────
// POST /api/v1/orders
// ─────────────────────────────────────────────

type OrderResponse struct {
	Order     *order.Order      `json:"order"`
	Breakdown pricing.Breakdown `json:"breakdown"`
}

// CreateOrder prices the cart, charges the total, and records the order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	user := appctx.MustGetUser(c)

	var req model.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ord, bd, err := h.orderSvc.Create(c.Request.Context(), user.ID, req.Cart())
	if err != nil {
		var insufficient *credit.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    "insufficient balance",
				"required": insufficient.Required,
				"balance":  insufficient.Available,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}

	c.JSON(http.StatusCreated, OrderResponse{Order: ord, Breakdown: bd})
}

// ─────────────────────────────────────────────
// GET /api/v1/orders
// ─────────────────────────────────────────────

type OrdersResponse struct {
	Orders []order.Order `json:"orders"`
}

// ListOrders returns the user's orders, newest first.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	user := appctx.MustGetUser(c)

	orders, err := h.orderSvc.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, OrdersResponse{Orders: orders})
}

// ─────────────────────────────────────────────
// GET /api/v1/orders/:id
// ─────────────────────────────────────────────

type OrderDetailResponse struct {
	Order *order.Order      `json:"order"`
	Lines []order.OrderLine `json:"lines"`
}

// GetOrder returns one order with its line items.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	user := appctx.MustGetUser(c)

	ord, lines, err := h.orderSvc.Get(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}

	c.JSON(http.StatusOK, OrderDetailResponse{Order: ord, Lines: lines})
}
