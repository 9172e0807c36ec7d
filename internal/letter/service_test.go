package letter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/letter"
	"github.com/inkpost/inkpost/server/internal/testutil"
)

func newServices(t *testing.T) (letter.Service, credit.Service) {
	db := testutil.OpenDB(t, &credit.Account{}, &credit.Entry{}, &letter.Letter{})
	creditSvc := credit.NewService(db)
	return letter.NewService(db, creditSvc, nil), creditSvc
}

func TestIngestAndList(t *testing.T) {
	letterSvc, _ := newServices(t)
	ctx := context.Background()

	ltr, err := letterSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)
	assert.False(t, ltr.Unlocked)
	assert.Nil(t, ltr.UnlockedAt)

	letters, err := letterSvc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, ltr.ID, letters[0].ID)

	// Other users never see it.
	other, err := letterSvc.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = letterSvc.Get(ctx, ltr.ID, "user-2")
	assert.ErrorIs(t, err, letter.ErrLetterNotFound)
}

func TestUnlockChargesOnce(t *testing.T) {
	letterSvc, creditSvc := newServices(t)
	ctx := context.Background()

	_, err := creditSvc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	ltr, err := letterSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)

	unlocked, err := letterSvc.Unlock(ctx, ltr.ID, "user-1", 20)
	require.NoError(t, err)
	assert.True(t, unlocked.Unlocked)
	require.NotNil(t, unlocked.UnlockedAt)

	acc, err := creditSvc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(80), acc.Balance)

	// A retry of the finished unlock is free.
	again, err := letterSvc.Unlock(ctx, ltr.ID, "user-1", 20)
	require.NoError(t, err)
	assert.True(t, again.Unlocked)

	acc, err = creditSvc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(80), acc.Balance)

	// Exactly one SPEND entry against the letter.
	entries, err := creditSvc.Entries(ctx, "user-1", 0)
	require.NoError(t, err)
	var spends int
	for _, e := range entries {
		if e.Type == credit.TxSpend && e.ReferenceID == ltr.ID {
			spends++
		}
	}
	assert.Equal(t, 1, spends)
}

func TestUnlockInsufficientBalanceLeavesLetterLocked(t *testing.T) {
	letterSvc, creditSvc := newServices(t)
	ctx := context.Background()

	_, err := creditSvc.AddCredits(ctx, "user-1", 10, "top-up", "")
	require.NoError(t, err)

	ltr, err := letterSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)

	_, err = letterSvc.Unlock(ctx, ltr.ID, "user-1", 20)
	require.Error(t, err)

	var insufficient *credit.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(20), insufficient.Required)
	assert.Equal(t, int64(10), insufficient.Available)

	// Letter stays locked, balance untouched.
	got, err := letterSvc.Get(ctx, ltr.ID, "user-1")
	require.NoError(t, err)
	assert.False(t, got.Unlocked)

	acc, err := creditSvc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), acc.Balance)
}

func TestUnlockNotFound(t *testing.T) {
	letterSvc, _ := newServices(t)

	_, err := letterSvc.Unlock(context.Background(), "nope", "user-1", 20)
	assert.ErrorIs(t, err, letter.ErrLetterNotFound)
}

func TestConcurrentUnlocksChargeExactlyOnce(t *testing.T) {
	letterSvc, creditSvc := newServices(t)
	ctx := context.Background()

	_, err := creditSvc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	ltr, err := letterSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)

	const attempts = 5
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = letterSvc.Unlock(ctx, ltr.ID, "user-1", 20)
		}(i)
	}
	wg.Wait()

	// Every caller sees success; the letter ends unlocked.
	for i, err := range results {
		assert.NoError(t, err, "attempt %d", i)
	}
	got, err := letterSvc.Get(ctx, ltr.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, got.Unlocked)

	// Exactly one charge survives: losers were refunded in full.
	acc, err := creditSvc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(80), acc.Balance)

	entries, err := creditSvc.Entries(ctx, "user-1", 0)
	require.NoError(t, err)
	var spends, refunds int
	for _, e := range entries {
		switch e.Type {
		case credit.TxSpend:
			spends++
		case credit.TxRefund:
			refunds++
		}
	}
	assert.Equal(t, spends-1, refunds)
}

// racingCreditService makes every SpendCredit lose the unlock race: a
// concurrent winner charges and flips the letter before the delegated
// debit lands, and the compensating refund then fails.
type racingCreditService struct {
	credit.Service
	db        *gorm.DB
	letterID  string
	refundErr error
}

func (s *racingCreditService) SpendCredit(ctx context.Context, userID string, amount int64, remark, referenceID string) (*credit.Account, error) {
	if _, err := s.Service.SpendCredit(ctx, userID, amount, remark, referenceID); err != nil {
		return nil, err
	}
	now := time.Now()
	s.db.Model(&letter.Letter{}).
		Where("id = ?", s.letterID).
		Updates(map[string]interface{}{"unlocked": true, "unlocked_at": now})
	return s.Service.SpendCredit(ctx, userID, amount, remark, referenceID)
}

func (s *racingCreditService) RefundCredit(ctx context.Context, userID string, amount int64, remark, referenceID string) (*credit.Account, error) {
	return nil, s.refundErr
}

func TestUnlockSurfacesFailedCompensation(t *testing.T) {
	db := testutil.OpenDB(t, &credit.Account{}, &credit.Entry{}, &letter.Letter{})
	creditSvc := credit.NewService(db)
	ctx := context.Background()

	_, err := creditSvc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	seedSvc := letter.NewService(db, creditSvc, nil)
	ltr, err := seedSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)

	refundErr := errors.New("ledger unavailable")
	racing := &racingCreditService{
		Service:   creditSvc,
		db:        db,
		letterID:  ltr.ID,
		refundErr: refundErr,
	}
	letterSvc := letter.NewService(db, racing, nil)

	// The lost race cannot be compensated, so the caller must see the
	// failure rather than a silent surviving second charge.
	_, err = letterSvc.Unlock(ctx, ltr.ID, "user-1", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, refundErr)

	// The winner's charge and the loser's uncompensated debit both stand;
	// the audit reports the excess one even though the letter ended up
	// unlocked.
	acc, err := creditSvc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), acc.Balance)

	charges, err := letterSvc.StrandedCharges(ctx)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, ltr.ID, charges[0].LetterID)
	assert.Equal(t, int64(20), charges[0].Amount)
}

func TestStrandedChargesReport(t *testing.T) {
	db := testutil.OpenDB(t, &credit.Account{}, &credit.Entry{}, &letter.Letter{})
	creditSvc := credit.NewService(db)
	letterSvc := letter.NewService(db, creditSvc, nil)
	ctx := context.Background()

	_, err := creditSvc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	ltr, err := letterSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)

	// Healthy state: no stranded charges.
	charges, err := letterSvc.StrandedCharges(ctx)
	require.NoError(t, err)
	assert.Empty(t, charges)

	// Simulate a crash between the debit and the unlock transition by
	// issuing the debit directly.
	_, err = creditSvc.SpendCredit(ctx, "user-1", 20, "unlock letter photo", ltr.ID)
	require.NoError(t, err)

	charges, err = letterSvc.StrandedCharges(ctx)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, ltr.ID, charges[0].LetterID)
	assert.Equal(t, "user-1", charges[0].UserID)
	assert.Equal(t, int64(20), charges[0].Amount)

	// A compensating refund clears the report.
	_, err = creditSvc.RefundCredit(ctx, "user-1", 20, "manual reconciliation", ltr.ID)
	require.NoError(t, err)

	charges, err = letterSvc.StrandedCharges(ctx)
	require.NoError(t, err)
	assert.Empty(t, charges)
}

func TestStrandedChargesCountMultiplicity(t *testing.T) {
	letterSvc, creditSvc := newServices(t)
	ctx := context.Background()

	_, err := creditSvc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	ltr, err := letterSvc.Ingest(ctx, "user-1", "alice", "hello", "https://cdn.example/p1.jpg")
	require.NoError(t, err)

	// Two stranded debits on the same letter, one of them refunded: a
	// single compensation must not hide the second debit.
	_, err = creditSvc.SpendCredit(ctx, "user-1", 20, "unlock letter photo", ltr.ID)
	require.NoError(t, err)
	_, err = creditSvc.SpendCredit(ctx, "user-1", 20, "unlock letter photo", ltr.ID)
	require.NoError(t, err)
	_, err = creditSvc.RefundCredit(ctx, "user-1", 20, "manual reconciliation", ltr.ID)
	require.NoError(t, err)

	charges, err := letterSvc.StrandedCharges(ctx)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, ltr.ID, charges[0].LetterID)

	// The second compensation clears it.
	_, err = creditSvc.RefundCredit(ctx, "user-1", 20, "manual reconciliation", ltr.ID)
	require.NoError(t, err)

	charges, err = letterSvc.StrandedCharges(ctx)
	require.NoError(t, err)
	assert.Empty(t, charges)
}
