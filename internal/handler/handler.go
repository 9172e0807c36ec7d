package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	appctx "github.com/inkpost/inkpost/server/internal/context"
	"github.com/inkpost/inkpost/server/internal/ws"
)

// Handler holds the shared HTTP/WS endpoints.
type Handler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the handler set.
func NewHandler(hub *ws.Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers shared routes on the Gin engine.
// apiKeyMiddleware protects the notification stream endpoint.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKeyMiddleware ...gin.HandlerFunc) {
	// ── Public endpoints (no auth) ──
	r.GET("/api/v1/health", h.Health)

	// ── WebSocket notification stream (API key auth) ──
	wsGroup := r.Group("/ws")
	for _, mw := range apiKeyMiddleware {
		wsGroup.Use(mw)
	}
	wsGroup.GET("", h.WebSocket)
}

// ─────────────────────────────────────────────
// GET /api/v1/health
// ─────────────────────────────────────────────

// Health is the liveness endpoint.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ─────────────────────────────────────────────
// GET /ws
// ─────────────────────────────────────────────

// WebSocket upgrades the connection and streams notifications (receipts,
// letter arrivals) to the authenticated user until the peer disconnects.
func (h *Handler) WebSocket(c *gin.Context) {
	user := appctx.MustGetUser(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	client := ws.NewClient(user.ID, conn, h.hub)
	client.Run() // blocks until the connection closes
}
