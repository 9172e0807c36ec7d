package handler

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/inkpost/server/internal/auth"
	"github.com/inkpost/inkpost/server/internal/config"
	appctx "github.com/inkpost/inkpost/server/internal/context"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/model"
)

// UserHandler handles user-related endpoints.
type UserHandler struct {
	userSvc   auth.UserService
	creditSvc credit.Service
	cfg       *config.Config
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc auth.UserService, creditSvc credit.Service, cfg *config.Config) *UserHandler {
	return &UserHandler{
		userSvc:   userSvc,
		creditSvc: creditSvc,
		cfg:       cfg,
	}
}

// RegisterRoutes registers user routes on the api group.
func (h *UserHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/me", h.Me)
	api.POST("/me/reset-key", h.ResetAPIKey)
	api.GET("/me/balance", h.MyBalance)
	api.GET("/me/ledger", h.MyLedger)
	api.POST("/me/checkin", h.Checkin)
}

// ─────────────────────────────────────────────
// GET /api/v1/me
// ─────────────────────────────────────────────

// Me returns the authenticated user's profile with balance.
func (h *UserHandler) Me(c *gin.Context) {
	user := appctx.MustGetUser(c)
	ctx := c.Request.Context()

	var balance int64
	acc, err := h.creditSvc.GetAccount(ctx, user.ID)
	if err == nil {
		balance = acc.Balance
	}

	c.JSON(http.StatusOK, model.UserProfile{
		User:    user,
		Balance: balance,
	})
}

// ─────────────────────────────────────────────
// POST /api/v1/me/reset-key
// ─────────────────────────────────────────────

type ResetKeyResponse struct {
	APIKey string `json:"api_key"`
}

// ResetAPIKey regenerates the user's API key.
func (h *UserHandler) ResetAPIKey(c *gin.Context) {
	user := appctx.MustGetUser(c)

	updatedUser, err := h.userSvc.ResetAPIKey(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset api key"})
		return
	}

	c.JSON(http.StatusOK, ResetKeyResponse{
		APIKey: updatedUser.APIKey,
	})
}

// ─────────────────────────────────────────────
// GET /api/v1/me/balance
// ─────────────────────────────────────────────

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// MyBalance returns the user's current credit balance.
func (h *UserHandler) MyBalance(c *gin.Context) {
	user := appctx.MustGetUser(c)

	acc, err := h.creditSvc.GetAccount(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Balance: acc.Balance,
	})
}

// ─────────────────────────────────────────────
// GET /api/v1/me/ledger
// ─────────────────────────────────────────────

type LedgerResponse struct {
	Entries []credit.Entry `json:"entries"`
}

// MyLedger returns the user's ledger history, newest first.
func (h *UserHandler) MyLedger(c *gin.Context) {
	user := appctx.MustGetUser(c)

	entries, err := h.creditSvc.Entries(c.Request.Context(), user.ID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get ledger"})
		return
	}

	c.JSON(http.StatusOK, LedgerResponse{Entries: entries})
}

// ─────────────────────────────────────────────
// POST /api/v1/me/checkin
// ─────────────────────────────────────────────

type CheckinResponse struct {
	Success bool   `json:"success"`
	Reward  int64  `json:"reward"`
	Balance int64  `json:"balance"`
	Message string `json:"message,omitempty"`
}

// Checkin handles the daily checkin reward.
func (h *UserHandler) Checkin(c *gin.Context) {
	user := appctx.MustGetUser(c)
	ctx := c.Request.Context()

	// Check if already checked in today
	if user.LastCheckinAt != nil {
		now := time.Now()
		last := *user.LastCheckinAt
		// Compare by date (same year, same day of year)
		if now.Year() == last.Year() && now.YearDay() == last.YearDay() {
			c.JSON(http.StatusOK, CheckinResponse{
				Success: false,
				Message: "already checked in today",
			})
			return
		}
	}

	// Generate random reward in range [min, max]
	minCredits := h.cfg.CheckinMinCredits
	maxCredits := h.cfg.CheckinMaxCredits
	if minCredits > maxCredits {
		minCredits, maxCredits = maxCredits, minCredits
	}
	reward := int64(minCredits)
	if maxCredits > minCredits {
		reward = int64(minCredits + rand.Intn(maxCredits-minCredits+1))
	}

	acc, err := h.creditSvc.Reward(ctx, user.ID, reward, "daily checkin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add reward"})
		return
	}

	if err := h.userSvc.UpdateLastCheckin(ctx, user.ID); err != nil {
		// Non-fatal, reward already added
	}

	c.JSON(http.StatusOK, CheckinResponse{
		Success: true,
		Reward:  reward,
		Balance: acc.Balance,
		Message: "checked in",
	})
}
