package credit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/testutil"
)

func newService(t *testing.T) credit.Service {
	db := testutil.OpenDB(t, &credit.Account{}, &credit.Entry{})
	return credit.NewService(db)
}

func TestGetAccountProvisionsZeroBalance(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	acc, err := svc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", acc.UserID)
	assert.Equal(t, int64(0), acc.Balance)

	// Second call returns the same account, not a duplicate.
	again, err := svc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.ID)
}

func TestInvalidAmountsRejectedWithoutStorage(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	for _, amount := range []int64{0, -5} {
		_, err := svc.SpendCredit(ctx, "user-1", amount, "bad spend", "")
		assert.ErrorIs(t, err, credit.ErrInvalidAmount, "spend %d", amount)

		_, err = svc.AddCredits(ctx, "user-1", amount, "bad deposit", "")
		assert.ErrorIs(t, err, credit.ErrInvalidAmount, "deposit %d", amount)

		_, err = svc.RefundCredit(ctx, "user-1", amount, "bad refund", "")
		assert.ErrorIs(t, err, credit.ErrInvalidAmount, "refund %d", amount)

		_, err = svc.Reward(ctx, "user-1", amount, "bad reward")
		assert.ErrorIs(t, err, credit.ErrInvalidAmount, "reward %d", amount)
	}

	// Balance untouched, only the initial deposit in the ledger.
	acc, err := svc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.Balance)

	entries, err := svc.Entries(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSpendInsufficientBalance(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, "user-1", 40, "top-up", "")
	require.NoError(t, err)

	_, err = svc.SpendCredit(ctx, "user-1", 100, "big spend", "ref-1")
	require.Error(t, err)

	var insufficient *credit.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(100), insufficient.Required)
	assert.Equal(t, int64(40), insufficient.Available)
	assert.ErrorIs(t, err, credit.ErrInsufficientBalance)

	// Nothing changed: balance intact, no SPEND entry.
	acc, err := svc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), acc.Balance)

	entries, err := svc.Entries(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, credit.TxDeposit, entries[0].Type)
}

func TestSpendToExactlyZero(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, "user-1", 50, "top-up", "")
	require.NoError(t, err)

	acc, err := svc.SpendCredit(ctx, "user-1", 50, "spend all", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)

	// One more credit is one too many.
	_, err = svc.SpendCredit(ctx, "user-1", 1, "overdraw", "ref-2")
	assert.ErrorIs(t, err, credit.ErrInsufficientBalance)
}

func TestLedgerRecordsEveryMutation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)
	_, err = svc.SpendCredit(ctx, "user-1", 30, "order", "order-1")
	require.NoError(t, err)
	_, err = svc.RefundCredit(ctx, "user-1", 30, "order failed", "order-1")
	require.NoError(t, err)
	_, err = svc.Reward(ctx, "user-1", 7, "daily checkin")
	require.NoError(t, err)

	acc, err := svc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(107), acc.Balance)

	entries, err := svc.Entries(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// Newest first.
	assert.Equal(t, credit.TxReward, entries[0].Type)
	assert.Equal(t, int64(7), entries[0].Amount)
	assert.Equal(t, int64(107), entries[0].BalanceAfter)

	assert.Equal(t, credit.TxRefund, entries[1].Type)
	assert.Equal(t, int64(30), entries[1].Amount)
	assert.Equal(t, "order-1", entries[1].ReferenceID)

	assert.Equal(t, credit.TxSpend, entries[2].Type)
	assert.Equal(t, int64(-30), entries[2].Amount)
	assert.Equal(t, int64(70), entries[2].BalanceAfter)

	assert.Equal(t, credit.TxDeposit, entries[3].Type)

	// Every entry's BalanceAfter stays non-negative.
	for _, e := range entries {
		assert.GreaterOrEqual(t, e.BalanceAfter, int64(0))
	}
}

func TestConcurrentSpendsNeverOverdraw(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, "user-1", 100, "top-up", "")
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.SpendCredit(ctx, "user-1", 30, "concurrent spend", "")
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, credit.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 100 credits cover exactly three 30-credit spends.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, attempts-3, insufficient)

	acc, err := svc.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), acc.Balance)

	entries, err := svc.Entries(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4) // deposit + 3 spends
	for _, e := range entries {
		assert.GreaterOrEqual(t, e.BalanceAfter, int64(0))
	}
}

func TestAccountsAreIndependent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, "user-a", 100, "top-up", "")
	require.NoError(t, err)
	_, err = svc.AddCredits(ctx, "user-b", 5, "top-up", "")
	require.NoError(t, err)

	_, err = svc.SpendCredit(ctx, "user-a", 80, "order", "")
	require.NoError(t, err)

	accB, err := svc.GetAccount(ctx, "user-b")
	require.NoError(t, err)
	assert.Equal(t, int64(5), accB.Balance)

	entriesB, err := svc.Entries(ctx, "user-b", 0)
	require.NoError(t, err)
	assert.Len(t, entriesB, 1)
}

func TestEntriesLimit(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.AddCredits(ctx, "user-1", 10, "top-up", "")
		require.NoError(t, err)
	}

	entries, err := svc.Entries(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
