package order

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/model"
	"github.com/inkpost/inkpost/server/internal/pricing"
	"github.com/inkpost/inkpost/server/internal/settings"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// Notifier receives the best-effort receipt after a paid order.
type Notifier interface {
	ReceiptIssued(ctx context.Context, userID string, rcpt *model.Receipt)
}

// ─────────────────────────────────────────────
// orderService implements Service
// ─────────────────────────────────────────────

type orderService struct {
	db       *gorm.DB
	credits  credit.Service
	settings settings.Service
	notifier Notifier // may be nil
}

// NewService creates an order Service.
func NewService(db *gorm.DB, credits credit.Service, settingsSvc settings.Service, notifier Notifier) Service {
	return &orderService{
		db:       db,
		credits:  credits,
		settings: settingsSvc,
		notifier: notifier,
	}
}

// Quote prices a cart for the review screen, no side effects.
func (s *orderService) Quote(ctx context.Context, cart pricing.Cart) (pricing.Breakdown, error) {
	sch, err := s.settings.Schedule(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	// The review screen counts all extras toward the free calendar.
	return pricing.ComputeOrderPrice(sch, cart, pricing.CalendarFreeByExtras), nil
}

// Create is the order flow:
//
//  1. Fetch the schedule once so every line is priced consistently.
//  2. Compute the itemised total (photos-only calendar rule at this
//     call site).
//  3. Debit the total against the order id. Insufficient balance aborts
//     with the typed error; no order record exists.
//  4. Persist order + lines in one transaction. If that fails after the
//     debit, the charge is refunded before the error is returned.
//  5. Dispatch the receipt, best-effort.
func (s *orderService) Create(ctx context.Context, userID string, cart pricing.Cart) (*Order, pricing.Breakdown, error) {
	sch, err := s.settings.Schedule(ctx)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}
	bd := pricing.ComputeOrderPrice(sch, cart, pricing.CalendarFreeByPhotos)

	orderID := uuid.NewString()

	var acc *credit.Account
	if bd.Total > 0 {
		acc, err = s.credits.SpendCredit(ctx, userID, bd.Total, "letter order", orderID)
		if err != nil {
			return nil, pricing.Breakdown{}, err
		}
		log.Printf("[order] charged %d credits user=%s order=%s", bd.Total, userID, orderID)
	}

	ord := &Order{
		ID:              orderID,
		UserID:          userID,
		Status:          StatusPaid,
		EnvelopeColor:   cart.EnvelopeColor,
		PaperColor:      cart.PaperColor,
		Scent:           cart.Scent,
		PhotoCount:      cart.PhotoCount,
		DocumentCount:   cart.DocumentCount,
		PostcardCount:   cart.PostcardCount,
		IncludeCalendar: cart.IncludeCalendar,
		Total:           bd.Total,
		CreatedAt:       time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ord).Error; err != nil {
			return err
		}
		for _, line := range bd.Lines {
			ol := OrderLine{
				OrderID:  orderID,
				Key:      line.Key,
				Quantity: line.Quantity,
				Amount:   line.Amount,
			}
			if err := tx.Create(&ol).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Refund the charge when the order record could not be written.
		if bd.Total > 0 {
			if _, refundErr := s.credits.RefundCredit(ctx, userID, bd.Total, "order persistence failed", orderID); refundErr != nil {
				log.Printf("[order] refund error after persistence failure: user=%s order=%s err=%v", userID, orderID, refundErr)
			}
		}
		return nil, pricing.Breakdown{}, err
	}

	if s.notifier != nil && acc != nil {
		s.notifier.ReceiptIssued(ctx, userID, &model.Receipt{
			Kind:        "order",
			ReferenceID: orderID,
			UserID:      userID,
			Amount:      bd.Total,
			Balance:     acc.Balance,
			IssuedAt:    ord.CreatedAt,
		})
	}
	return ord, bd, nil
}

// Get returns one order owned by the user, with its lines.
func (s *orderService) Get(ctx context.Context, orderID, userID string) (*Order, []OrderLine, error) {
	var ord Order
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}

	var lines []OrderLine
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&lines).Error; err != nil {
		return nil, nil, err
	}
	return &ord, lines, nil
}

// ListByUser returns the user's orders, newest first.
func (s *orderService) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
