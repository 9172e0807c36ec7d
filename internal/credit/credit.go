package credit

import (
	"context"
	"time"
)

// ─────────────────────────────────────────────
// Credit Ledger
//
// Tracks user credit balances, supports deposits (top-up / rewards),
// spends (orders, unlocks), refunds, and an append-only entry history.
// The balance is never allowed below zero, even under concurrent
// requests against the same account.
// ─────────────────────────────────────────────

// Account holds a user's credit balance. One row per user, owned
// exclusively by this package; all mutations go through applyDelta.
type Account struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex"`
	Balance   int64     `json:"balance"` // current balance in whole credits, always >= 0
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryType categorises ledger entries.
type EntryType string

const (
	TxSpend   EntryType = "SPEND"   // order payment, unlock charge
	TxDeposit EntryType = "DEPOSIT" // top-up, admin grant
	TxRefund  EntryType = "REFUND"  // compensation for a specific prior spend
	TxReward  EntryType = "REWARD"  // daily checkin reward
)

// Entry is an immutable ledger record of one balance change.
// Entries are append-only: never updated, never deleted.
type Entry struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"index"`
	Type         EntryType `json:"type"`
	Amount       int64     `json:"amount"` // signed: positive = credit, negative = debit
	BalanceAfter int64     `json:"balance_after"`
	ReferenceID  string    `json:"reference_id,omitempty" gorm:"index"` // order or letter id
	Remark       string    `json:"remark,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────
// Service defines the interface for the
// credit balance & ledger system.
// ─────────────────────────────────────────────

type Service interface {
	// GetAccount returns the user's current balance info.
	// Creates an account with zero balance if not exists.
	GetAccount(ctx context.Context, userID string) (*Account, error)

	// SpendCredit debits the balance. The amount must be a positive whole
	// number of credits; ErrInvalidAmount otherwise. Returns an
	// *InsufficientBalanceError (wrapping ErrInsufficientBalance) when the
	// balance cannot cover the amount; the balance is left untouched.
	// This is the only path by which a balance decreases.
	SpendCredit(ctx context.Context, userID string, amount int64, remark, referenceID string) (*Account, error)

	// AddCredits credits the balance. Amount must be positive.
	AddCredits(ctx context.Context, userID string, amount int64, remark, referenceID string) (*Account, error)

	// RefundCredit credits the balance back, compensating a specific prior
	// spend. Recorded with the REFUND entry type and should carry the same
	// referenceID as the spend it compensates.
	RefundCredit(ctx context.Context, userID string, amount int64, remark, referenceID string) (*Account, error)

	// Reward credits the balance with the REWARD entry type (daily checkin).
	Reward(ctx context.Context, userID string, amount int64, remark string) (*Account, error)

	// Entries returns the user's ledger history, newest first.
	Entries(ctx context.Context, userID string, limit int) ([]Entry, error)
}
