package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ─────────────────────────────────────────────
// Errors
// ─────────────────────────────────────────────

var (
	ErrInvalidAmount       = errors.New("amount must be a positive whole number of credits")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
)

// InsufficientBalanceError carries the amount the caller would need so the
// UI can offer a top-up path instead of a generic failure.
type InsufficientBalanceError struct {
	UserID    string
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d credits, available %d", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// ─────────────────────────────────────────────
// creditService implements Service
// ─────────────────────────────────────────────

type creditService struct {
	db *gorm.DB
}

// NewService creates a new credit Service backed by the given DB.
func NewService(db *gorm.DB) Service {
	return &creditService{db: db}
}

// GetAccount returns the user's balance account, creating one if not exists.
func (s *creditService) GetAccount(ctx context.Context, userID string) (*Account, error) {
	var acc Account
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&acc).Error
	if err == nil {
		return &acc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Create new account with zero balance
	acc = Account{
		UserID:    userID,
		Balance:   0,
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&acc).Error; err != nil {
		// Another request may have created it first
		if err2 := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&acc).Error; err2 == nil {
			return &acc, nil
		}
		return nil, err
	}
	return &acc, nil
}

// SpendCredit debits the balance by amount.
func (s *creditService) SpendCredit(ctx context.Context, userID string, amount int64, remark, referenceID string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyDelta(ctx, userID, -amount, TxSpend, remark, referenceID)
}

// AddCredits credits the balance by amount.
func (s *creditService) AddCredits(ctx context.Context, userID string, amount int64, remark, referenceID string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyDelta(ctx, userID, amount, TxDeposit, remark, referenceID)
}

// RefundCredit credits the balance back for a prior spend.
func (s *creditService) RefundCredit(ctx context.Context, userID string, amount int64, remark, referenceID string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyDelta(ctx, userID, amount, TxRefund, remark, referenceID)
}

// Reward credits the balance with the REWARD entry type.
func (s *creditService) Reward(ctx context.Context, userID string, amount int64, remark string) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyDelta(ctx, userID, amount, TxReward, remark, "")
}

// Entries returns the user's ledger history, newest first.
func (s *creditService) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []Entry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// applyDelta mutates the balance and appends the ledger entry as one
// database transaction. The balance change is a conditional UPDATE:
//
//	UPDATE accounts SET balance = balance + delta
//	WHERE user_id = ? AND balance + delta >= 0
//
// so two concurrent debits can never both commit if their sum would drive
// the balance negative. Under Postgres the row lock taken by the UPDATE
// serialises concurrent deltas per account; the losing request re-evaluates
// the predicate against the committed balance. Nothing partial is ever
// written: on any failure the transaction rolls back entry and balance
// together.
func (s *creditService) applyDelta(ctx context.Context, userID string, delta int64, entryType EntryType, remark, referenceID string) (*Account, error) {
	// Provision the account row outside the transaction so the conditional
	// UPDATE below always has a row to match.
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return nil, err
	}

	var result *Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Account{}).
			Where("user_id = ? AND balance + ? >= 0", userID, delta).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", delta),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var acc Account
			if err := tx.Where("user_id = ?", userID).First(&acc).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAccountNotFound
				}
				return err
			}
			return &InsufficientBalanceError{
				UserID:    userID,
				Required:  -delta,
				Available: acc.Balance,
			}
		}

		var acc Account
		if err := tx.Where("user_id = ?", userID).First(&acc).Error; err != nil {
			return err
		}

		entry := Entry{
			ID:           uuid.NewString(),
			UserID:       userID,
			Type:         entryType,
			Amount:       delta,
			BalanceAfter: acc.Balance,
			ReferenceID:  referenceID,
			Remark:       remark,
			CreatedAt:    time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
