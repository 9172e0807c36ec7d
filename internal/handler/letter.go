package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appctx "github.com/inkpost/inkpost/server/internal/context"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/letter"
	"github.com/inkpost/inkpost/server/internal/settings"
)

// LetterHandler handles incoming-letter endpoints.
type LetterHandler struct {
	letterSvc   letter.Service
	settingsSvc settings.Service
}

// NewLetterHandler creates a new LetterHandler.
func NewLetterHandler(letterSvc letter.Service, settingsSvc settings.Service) *LetterHandler {
	return &LetterHandler{
		letterSvc:   letterSvc,
		settingsSvc: settingsSvc,
	}
}

// RegisterRoutes registers letter routes on the api group.
func (h *LetterHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/letters", h.ListLetters)
	api.GET("/letters/:id", h.GetLetter)
	api.POST("/letters/:id/unlock", h.UnlockLetter)
}

// LetterView is the outbound letter representation. The photo URL is
// present only when the letter is unlocked.
type LetterView struct {
	*letter.Letter
	PhotoURL string `json:"photo_url,omitempty"`
}

func viewOf(ltr *letter.Letter) LetterView {
	v := LetterView{Letter: ltr}
	if ltr.Unlocked {
		v.PhotoURL = ltr.PhotoURL
	}
	return v
}

// ─────────────────────────────────────────────
// GET /api/v1/letters
// ─────────────────────────────────────────────

type LettersResponse struct {
	Letters []LetterView `json:"letters"`
}

// ListLetters returns the user's incoming letters.
func (h *LetterHandler) ListLetters(c *gin.Context) {
	user := appctx.MustGetUser(c)

	letters, err := h.letterSvc.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list letters"})
		return
	}

	views := make([]LetterView, 0, len(letters))
	for i := range letters {
		views = append(views, viewOf(&letters[i]))
	}
	c.JSON(http.StatusOK, LettersResponse{Letters: views})
}

// ─────────────────────────────────────────────
// GET /api/v1/letters/:id
// ─────────────────────────────────────────────

// GetLetter returns one incoming letter.
func (h *LetterHandler) GetLetter(c *gin.Context) {
	user := appctx.MustGetUser(c)

	ltr, err := h.letterSvc.Get(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, letter.ErrLetterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "letter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get letter"})
		return
	}

	c.JSON(http.StatusOK, viewOf(ltr))
}

// ─────────────────────────────────────────────
// POST /api/v1/letters/:id/unlock
// ─────────────────────────────────────────────

type UnlockResponse struct {
	Letter LetterView `json:"letter"`
}

// UnlockLetter charges the unlock price once and reveals the letter photo.
// Retried and concurrent requests on the same letter are safe: at most one
// charge survives.
func (h *LetterHandler) UnlockLetter(c *gin.Context) {
	user := appctx.MustGetUser(c)
	ctx := c.Request.Context()

	sch, err := h.settingsSvc.Schedule(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load prices"})
		return
	}

	ltr, err := h.letterSvc.Unlock(ctx, c.Param("id"), user.ID, sch.UnlockPrice)
	if err != nil {
		var insufficient *credit.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			// Distinguishable so the UI can offer a top-up path.
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    "insufficient balance",
				"required": insufficient.Required,
				"balance":  insufficient.Available,
			})
		case errors.Is(err, letter.ErrLetterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "letter not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unlock letter"})
		}
		return
	}

	c.JSON(http.StatusOK, UnlockResponse{Letter: viewOf(ltr)})
}
