// Package credits redeems prepaid bundle credits with optimistic
// concurrency: a conditional decrement instead of a lock, where zero rows
// affected means a concurrent redemption won and the caller falls back to a
// normal paid checkout.
package credits

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"songcraft-backend/internal/models"
)

// Store is the slice of the ledger store the credit ledger needs.
type Store interface {
	// OldestBundleWithCredits returns the FIFO redemption candidate or
	// sql.ErrNoRows when the user has no credits.
	OldestBundleWithCredits(userID uuid.UUID) (*models.Bundle, error)
	// DecrementBundleCredits spends one credit only if quantity_remaining
	// still equals expected; false means the conditional update lost a race.
	DecrementBundleCredits(bundleID uuid.UUID, expected int) (bool, error)
	CreditBalance(userID uuid.UUID) (int, error)
}

type Result struct {
	Redeemed bool
	BundleID uuid.UUID
	// Remaining is the redeemed bundle's balance after the decrement.
	Remaining int
}

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Redeem spends one credit from the user's oldest bundle. A lost race is
// reported as not-redeemed rather than retried: the caller falls back to a
// paid checkout, which is always safe, while a retry here could double-spend
// under sustained contention.
func (l *Ledger) Redeem(userID uuid.UUID) (*Result, error) {
	bundle, err := l.store.OldestBundleWithCredits(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Result{Redeemed: false}, nil
		}
		return nil, fmt.Errorf("failed to find redeemable bundle: %w", err)
	}

	won, err := l.store.DecrementBundleCredits(bundle.ID, bundle.QuantityRemaining)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem credit: %w", err)
	}
	if !won {
		return &Result{Redeemed: false}, nil
	}

	return &Result{
		Redeemed:  true,
		BundleID:  bundle.ID,
		Remaining: bundle.QuantityRemaining - 1,
	}, nil
}

// Balance sums the user's remaining credits across unexpired bundles.
func (l *Ledger) Balance(userID uuid.UUID) (int, error) {
	return l.store.CreditBalance(userID)
}
