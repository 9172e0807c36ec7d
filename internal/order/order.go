package order

import (
	"context"
	"time"

	"github.com/inkpost/inkpost/server/internal/pricing"
)

// ─────────────────────────────────────────────
// Letter Orders
//
// An order is a composed letter plus paid extras. The price is computed
// from the live schedule, the total is debited from the credit balance,
// and only then is the order record created. A persistence failure after
// the debit refunds the charge.
// ─────────────────────────────────────────────

// Order is a paid letter order.
type Order struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	UserID          string    `json:"user_id" gorm:"index"`
	Status          string    `json:"status"` // paid
	EnvelopeColor   string    `json:"envelope_color"`
	PaperColor      string    `json:"paper_color"`
	Scent           string    `json:"scent"`
	PhotoCount      int64     `json:"photo_count"`
	DocumentCount   int64     `json:"document_count"`
	PostcardCount   int64     `json:"postcard_count"`
	IncludeCalendar bool      `json:"include_calendar"`
	Total           int64     `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
}

// StatusPaid is the only status the core assigns; fulfilment states are
// managed elsewhere.
const StatusPaid = "paid"

// OrderLine is one priced line item of an order, kept for display and audit.
type OrderLine struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	OrderID  string `json:"order_id" gorm:"index"`
	Key      string `json:"key"`
	Quantity int64  `json:"quantity"`
	Amount   int64  `json:"amount"`
}

// Service defines the order flow.
type Service interface {
	// Quote prices a cart for the review screen. No side effects.
	// Uses the combined-extras calendar rule.
	Quote(ctx context.Context, cart pricing.Cart) (pricing.Breakdown, error)

	// Create prices the cart, debits the total, and persists the order
	// with its line items. Uses the photos-only calendar rule.
	Create(ctx context.Context, userID string, cart pricing.Cart) (*Order, pricing.Breakdown, error)

	// Get returns one order owned by the user, with its lines.
	Get(ctx context.Context, orderID, userID string) (*Order, []OrderLine, error)

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
