package model

import (
	"time"

	"github.com/inkpost/inkpost/server/internal/pricing"
)

// ─────────────────────────────────────────────
// WebSocket Protocol Messages
// ─────────────────────────────────────────────

type MsgType string

const (
	// Server → Client
	MsgTypeReceipt       MsgType = "RECEIPT"
	MsgTypeLetterArrived MsgType = "LETTER_ARRIVED"
)

// Envelope is the top-level WebSocket frame.
type Envelope struct {
	Type    MsgType     `json:"type"`
	Payload interface{} `json:"payload"`
}

// ReceiptChannel is the Redis pub/sub channel carrying receipt events.
const ReceiptChannel = "notify:receipts"

// Receipt is issued after a successful charge (order payment or unlock).
type Receipt struct {
	Kind        string    `json:"kind"` // "order" | "unlock"
	ReferenceID string    `json:"reference_id"`
	UserID      string    `json:"user_id"`
	Amount      int64     `json:"amount"`  // credits charged
	Balance     int64     `json:"balance"` // balance after the charge
	IssuedAt    time.Time `json:"issued_at"`
}

// LetterArrived announces a new incoming letter to its owner.
type LetterArrived struct {
	LetterID string `json:"letter_id"`
	Sender   string `json:"sender"`
	Subject  string `json:"subject"`
}

// ─────────────────────────────────────────────
// SQL Persistence Models (async write)
// ─────────────────────────────────────────────

// NotificationLog records every dispatched notification (write-behind).
type NotificationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────
// HTTP Request / Response
// ─────────────────────────────────────────────

// CartRequest is the inbound order/quote body.
// UserID is NOT included here – it is extracted from the API key in the
// middleware. Counts bind as integers; fractional JSON numbers are rejected
// before any pricing or ledger code runs.
type CartRequest struct {
	EnvelopeColor   string `json:"envelope_color"`
	PaperColor      string `json:"paper_color"`
	Scent           string `json:"scent"`
	PhotoCount      int64  `json:"photo_count" binding:"min=0"`
	DocumentCount   int64  `json:"document_count" binding:"min=0"`
	PostcardCount   int64  `json:"postcard_count" binding:"min=0"`
	IncludeCalendar bool   `json:"include_calendar"`
}

// Cart converts the request body into the engine's cart value.
func (r CartRequest) Cart() pricing.Cart {
	return pricing.Cart{
		EnvelopeColor:   r.EnvelopeColor,
		PaperColor:      r.PaperColor,
		Scent:           r.Scent,
		PhotoCount:      r.PhotoCount,
		DocumentCount:   r.DocumentCount,
		PostcardCount:   r.PostcardCount,
		IncludeCalendar: r.IncludeCalendar,
	}
}

// UserProfile represents user profile with balance information.
// Used by both /api/v1/me and /api/v1/admin/users/:id endpoints.
type UserProfile struct {
	User    interface{} `json:"user"`    // *auth.User
	Balance int64       `json:"balance"` // current credit balance
}
