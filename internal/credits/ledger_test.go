package credits_test

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songcraft-backend/internal/credits"
	"songcraft-backend/internal/models"
)

// fakeBundleStore mimics the conditional-update semantics of the real
// store: the decrement only lands when the expected remaining count still
// matches.
type fakeBundleStore struct {
	mu      sync.Mutex
	bundles []*models.Bundle
}

func (s *fakeBundleStore) add(userID uuid.UUID, remaining int, purchasedAt time.Time) *models.Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &models.Bundle{
		ID:                uuid.New(),
		UserID:            userID,
		OrderID:           uuid.New(),
		QuantityPurchased: remaining,
		QuantityRemaining: remaining,
		PurchasedAt:       purchasedAt,
	}
	s.bundles = append(s.bundles, b)
	return b
}

func (s *fakeBundleStore) OldestBundleWithCredits(userID uuid.UUID) (*models.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.Bundle
	for _, b := range s.bundles {
		if b.UserID != userID || b.QuantityRemaining <= 0 {
			continue
		}
		if oldest == nil || b.PurchasedAt.Before(oldest.PurchasedAt) {
			oldest = b
		}
	}
	if oldest == nil {
		return nil, sql.ErrNoRows
	}
	copied := *oldest
	return &copied, nil
}

func (s *fakeBundleStore) DecrementBundleCredits(bundleID uuid.UUID, expected int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bundles {
		if b.ID == bundleID && b.QuantityRemaining == expected {
			b.QuantityRemaining--
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeBundleStore) CreditBalance(userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, b := range s.bundles {
		if b.UserID == userID {
			total += b.QuantityRemaining
		}
	}
	return total, nil
}

func TestLedger_RedeemSpendsOneCredit(t *testing.T) {
	store := &fakeBundleStore{}
	userID := uuid.New()
	store.add(userID, 3, time.Now())
	ledger := credits.NewLedger(store)

	result, err := ledger.Redeem(userID)

	require.NoError(t, err)
	assert.True(t, result.Redeemed)
	assert.Equal(t, 2, result.Remaining)

	balance, err := ledger.Balance(userID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestLedger_RedeemWithNoCredits(t *testing.T) {
	store := &fakeBundleStore{}
	ledger := credits.NewLedger(store)

	result, err := ledger.Redeem(uuid.New())

	require.NoError(t, err)
	assert.False(t, result.Redeemed)
}

func TestLedger_RedeemsOldestBundleFirst(t *testing.T) {
	store := &fakeBundleStore{}
	userID := uuid.New()
	newer := store.add(userID, 2, time.Now())
	older := store.add(userID, 2, time.Now().Add(-48*time.Hour))
	ledger := credits.NewLedger(store)

	result, err := ledger.Redeem(userID)

	require.NoError(t, err)
	require.True(t, result.Redeemed)
	assert.Equal(t, older.ID, result.BundleID)
	assert.Equal(t, 1, older.QuantityRemaining)
	assert.Equal(t, 2, newer.QuantityRemaining)
}

// Two simultaneous redemptions of the last credit: exactly one wins and the
// balance never goes negative.
func TestLedger_ConcurrentRedemptionOfLastCredit(t *testing.T) {
	store := &fakeBundleStore{}
	userID := uuid.New()
	bundle := store.add(userID, 1, time.Now())
	ledger := credits.NewLedger(store)

	const attempts = 2
	results := make([]*credits.Result, attempts)
	errs := make([]error, attempts)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = ledger.Redeem(userID)
		}(i)
	}
	start.Done()
	done.Wait()

	wins := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if results[i].Redeemed {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, bundle.QuantityRemaining)
}

func TestLedger_LostRaceReportsNotRedeemed(t *testing.T) {
	store := &fakeBundleStore{}
	userID := uuid.New()
	bundle := store.add(userID, 2, time.Now())

	// Simulate a concurrent redemption landing between the read and the
	// conditional update.
	raced := &racingStore{fakeBundleStore: store, bundleID: bundle.ID}
	result, err := credits.NewLedger(raced).Redeem(userID)

	require.NoError(t, err)
	assert.False(t, result.Redeemed)
	assert.Equal(t, 1, bundle.QuantityRemaining)
}

type racingStore struct {
	*fakeBundleStore
	bundleID uuid.UUID
	once     sync.Once
}

func (s *racingStore) OldestBundleWithCredits(userID uuid.UUID) (*models.Bundle, error) {
	bundle, err := s.fakeBundleStore.OldestBundleWithCredits(userID)
	if err != nil {
		return nil, err
	}
	// Another order redeems right after our read.
	s.once.Do(func() {
		_, _ = s.fakeBundleStore.DecrementBundleCredits(s.bundleID, bundle.QuantityRemaining)
	})
	return bundle, nil
}
