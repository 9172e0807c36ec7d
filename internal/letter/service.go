package letter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/model"
	"gorm.io/gorm"
)

// ─────────────────────────────────────────────
// Errors
// ─────────────────────────────────────────────

var (
	ErrLetterNotFound = errors.New("letter not found")
)

// Notifier receives best-effort notifications. Failures never affect the
// ledger or the unlock outcome.
type Notifier interface {
	ReceiptIssued(ctx context.Context, userID string, rcpt *model.Receipt)
	LetterArrived(ctx context.Context, userID string, ev *model.LetterArrived)
}

// ─────────────────────────────────────────────
// letterService implements Service
// ─────────────────────────────────────────────

type letterService struct {
	db       *gorm.DB
	credits  credit.Service
	notifier Notifier // may be nil
}

// NewService creates a letter Service backed by the given DB and ledger.
func NewService(db *gorm.DB, credits credit.Service, notifier Notifier) Service {
	return &letterService{db: db, credits: credits, notifier: notifier}
}

// Ingest creates a locked letter and announces it to the owner.
func (s *letterService) Ingest(ctx context.Context, userID, sender, subject, photoURL string) (*Letter, error) {
	ltr := &Letter{
		ID:        uuid.NewString(),
		UserID:    userID,
		Sender:    sender,
		Subject:   subject,
		PhotoURL:  photoURL,
		Unlocked:  false,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(ltr).Error; err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.LetterArrived(ctx, userID, &model.LetterArrived{
			LetterID: ltr.ID,
			Sender:   sender,
			Subject:  subject,
		})
	}
	return ltr, nil
}

// ListByUser returns the user's incoming letters, newest first.
func (s *letterService) ListByUser(ctx context.Context, userID string) ([]Letter, error) {
	var letters []Letter
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&letters).Error
	if err != nil {
		return nil, err
	}
	return letters, nil
}

// Get returns one letter owned by the user.
func (s *letterService) Get(ctx context.Context, letterID, userID string) (*Letter, error) {
	var ltr Letter
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", letterID, userID).
		First(&ltr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}
	return &ltr, nil
}

// Unlock runs the pay-to-reveal protocol:
//
//  1. Load the letter; already unlocked → success, no charge.
//  2. Debit the unlock price (typed insufficient-balance error aborts
//     everything, no state change).
//  3. Conditionally flip LOCKED → UNLOCKED: the UPDATE matches only rows
//     still locked, never a blind write.
//  4. Zero rows affected means a concurrent caller won the race between
//     our load and our flip; their charge stands and ours is refunded
//     against the same letter. The caller still sees success.
func (s *letterService) Unlock(ctx context.Context, letterID, userID string, price int64) (*Letter, error) {
	ltr, err := s.Get(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}
	if ltr.Unlocked {
		// Legitimate retry of a finished unlock: must not charge again.
		return ltr, nil
	}

	acc, err := s.credits.SpendCredit(ctx, userID, price, "unlock letter photo", letterID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := s.db.WithContext(ctx).Model(&Letter{}).
		Where("id = ? AND unlocked = ?", letterID, false).
		Updates(map[string]interface{}{"unlocked": true, "unlocked_at": now})
	if res.Error != nil {
		// Charged but not flipped: the stranded charge shows up in the
		// StrandedCharges audit, a retry re-runs the full protocol.
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Lost the race: compensate our debit and stand down. A failed
		// compensation leaves a surviving second charge, so it must surface
		// as a failure; the excess debit shows up in StrandedCharges.
		if _, refundErr := s.credits.RefundCredit(ctx, userID, price, "unlock raced, charge reversed", letterID); refundErr != nil {
			log.Printf("[letter] refund after lost unlock race failed: user=%s letter=%s err=%v", userID, letterID, refundErr)
			return nil, fmt.Errorf("compensate lost unlock race: %w", refundErr)
		}
		return s.Get(ctx, letterID, userID)
	}

	if s.notifier != nil {
		s.notifier.ReceiptIssued(ctx, userID, &model.Receipt{
			Kind:        "unlock",
			ReferenceID: letterID,
			UserID:      userID,
			Amount:      price,
			Balance:     acc.Balance,
			IssuedAt:    now,
		})
	}
	return s.Get(ctx, letterID, userID)
}

// StrandedCharges lists excess unlock debits per (user, letter): spends
// beyond the refunds issued plus the one charge a completed unlock keeps.
// Counting spends and refunds, not mere existence, keeps repeated stranded
// debits on the same letter from hiding behind a single compensation.
func (s *letterService) StrandedCharges(ctx context.Context) ([]StrandedCharge, error) {
	var out []StrandedCharge
	err := s.db.WithContext(ctx).Raw(`
		SELECT entry_id, user_id, letter_id, amount, created_at FROM (
			SELECT e.id AS entry_id, e.user_id, e.reference_id AS letter_id,
			       -e.amount AS amount, e.created_at,
			       ROW_NUMBER() OVER (
			           PARTITION BY e.user_id, e.reference_id
			           ORDER BY e.created_at, e.id
			       ) AS spend_seq,
			       (SELECT COUNT(*) FROM entries r
			        WHERE r.type = ? AND r.user_id = e.user_id AND r.reference_id = e.reference_id) AS refunds,
			       CASE WHEN l.unlocked THEN 1 ELSE 0 END AS surviving
			FROM entries e
			JOIN letters l ON l.id = e.reference_id
			WHERE e.type = ?
		) spends
		WHERE spend_seq > refunds + surviving
		ORDER BY created_at`,
		credit.TxRefund, credit.TxSpend).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
