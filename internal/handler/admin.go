package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/inkpost/server/internal/auth"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/letter"
	"github.com/inkpost/inkpost/server/internal/settings"
)

// AdminHandler handles operator endpoints behind the admin token.
type AdminHandler struct {
	userSvc     auth.UserService
	creditSvc   credit.Service
	letterSvc   letter.Service
	settingsSvc settings.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userSvc auth.UserService, creditSvc credit.Service, letterSvc letter.Service, settingsSvc settings.Service) *AdminHandler {
	return &AdminHandler{
		userSvc:     userSvc,
		creditSvc:   creditSvc,
		letterSvc:   letterSvc,
		settingsSvc: settingsSvc,
	}
}

// RegisterRoutes registers admin routes on the admin group.
func (h *AdminHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/users/:id", h.GetUser)
	admin.PUT("/users/:id/status", h.SetUserStatus)
	admin.POST("/users/:id/credits", h.AddCredits)
	admin.GET("/prices", h.ListPrices)
	admin.PUT("/prices/:key", h.SetPrice)
	admin.POST("/letters", h.IngestLetter)
	admin.GET("/audit/stranded-charges", h.StrandedCharges)
}

// ─────────────────────────────────────────────
// GET /admin/users/:id
// ─────────────────────────────────────────────

// GetUser returns one user with their balance.
func (h *AdminHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.userSvc.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	var balance int64
	if acc, err := h.creditSvc.GetAccount(ctx, user.ID); err == nil {
		balance = acc.Balance
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "balance": balance})
}

// ─────────────────────────────────────────────
// PUT /admin/users/:id/status
// ─────────────────────────────────────────────

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active banned suspended"`
}

// SetUserStatus sets the account status (active / banned / suspended).
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userSvc.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// ─────────────────────────────────────────────
// POST /admin/users/:id/credits
// ─────────────────────────────────────────────

type AddCreditsRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Remark string `json:"remark"`
}

// AddCredits deposits credits into a user's account.
func (h *AdminHandler) AddCredits(c *gin.Context) {
	var req AddCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	remark := req.Remark
	if remark == "" {
		remark = "admin deposit"
	}

	acc, err := h.creditSvc.AddCredits(c.Request.Context(), c.Param("id"), req.Amount, remark, "")
	if err != nil {
		if errors.Is(err, credit.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": acc.Balance})
}

// ─────────────────────────────────────────────
// GET /admin/prices
// ─────────────────────────────────────────────

// ListPrices returns every price key with its effective value.
func (h *AdminHandler) ListPrices(c *gin.Context) {
	prices, err := h.settingsSvc.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list prices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

// ─────────────────────────────────────────────
// PUT /admin/prices/:key
// ─────────────────────────────────────────────

type SetPriceRequest struct {
	Value *int64 `json:"value" binding:"required"`
}

// SetPrice updates one price key. The new value applies to computations
// that start after the write; in-flight computations keep the schedule
// they loaded.
func (h *AdminHandler) SetPrice(c *gin.Context) {
	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settingsSvc.Set(c.Request.Context(), c.Param("key"), *req.Value); err != nil {
		switch {
		case errors.Is(err, settings.ErrUnknownKey):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown price key"})
		case errors.Is(err, settings.ErrInvalidValue):
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must not be negative"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set price"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": *req.Value})
}

// ─────────────────────────────────────────────
// POST /admin/letters
// ─────────────────────────────────────────────

type IngestLetterRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Sender   string `json:"sender" binding:"required"`
	Subject  string `json:"subject"`
	PhotoURL string `json:"photo_url" binding:"required"`
}

// IngestLetter records an incoming letter for a user, locked until paid.
func (h *AdminHandler) IngestLetter(c *gin.Context) {
	var req IngestLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.userSvc.GetByID(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest letter"})
		return
	}

	ltr, err := h.letterSvc.Ingest(c.Request.Context(), req.UserID, req.Sender, req.Subject, req.PhotoURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest letter"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"letter": ltr})
}

// ─────────────────────────────────────────────
// GET /admin/audit/stranded-charges
// ─────────────────────────────────────────────

// StrandedCharges lists unlock debits whose letter never flipped and
// which were never refunded. The list should normally be empty.
func (h *AdminHandler) StrandedCharges(c *gin.Context) {
	charges, err := h.letterSvc.StrandedCharges(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run audit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stranded_charges": charges})
}
