package letter

import (
	"context"
	"time"
)

// ─────────────────────────────────────────────
// Incoming Letters
//
// An incoming letter is created locked by the ingestion flow. Its photo
// stays hidden until the owner pays the unlock price once; the unlock is
// permanent and survives any number of retried or concurrent attempts
// with exactly one surviving charge.
// ─────────────────────────────────────────────

// Letter is an incoming letter owned by a user. The photo URL is only
// revealed once the letter is unlocked.
type Letter struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"user_id" gorm:"index"`
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	PhotoURL   string     `json:"-"` // exposed via handler only when unlocked
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// StrandedCharge is an unlock debit with no compensating refund beyond the
// single charge a completed unlock legitimately keeps. It indicates a crash
// between the debit and the conditional unlock transition, or a failed
// refund after a lost race; reconciliation is an operational concern, this
// is reporting only.
type StrandedCharge struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	LetterID  string    `json:"letter_id"`
	Amount    int64     `json:"amount"` // credits charged
	CreatedAt time.Time `json:"created_at"`
}

// Service defines the incoming-letter store and the unlock protocol.
type Service interface {
	// Ingest creates a locked letter for a user (admin/ingestion flow).
	Ingest(ctx context.Context, userID, sender, subject, photoURL string) (*Letter, error)

	// ListByUser returns the user's incoming letters, newest first.
	ListByUser(ctx context.Context, userID string) ([]Letter, error)

	// Get returns one letter owned by the user.
	Get(ctx context.Context, letterID, userID string) (*Letter, error)

	// Unlock charges price credits once and permanently reveals the letter.
	// Calling it on an already-unlocked letter is a free no-op. When two
	// requests race, exactly one charge survives; the loser's debit is
	// refunded and both callers see success.
	Unlock(ctx context.Context, letterID, userID string, price int64) (*Letter, error)

	// StrandedCharges lists unlock debits in excess of refunds plus the
	// one surviving charge per unlocked letter (admin audit). Counted per
	// (user, letter), so repeated stranded debits are all reported.
	StrandedCharges(ctx context.Context) ([]StrandedCharge, error)
}
