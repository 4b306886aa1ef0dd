package generation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/models"
)

func TestReconciler_RequeuesOnlyStaleGeneratingVariants(t *testing.T) {
	store := newFakeStore()
	order := store.addOrder(models.OrderStatusGenerating, models.OrderTypeBase, 3)

	// Variant 1: stuck generating since well past the threshold.
	store.setVariantStatus(order.ID, 1, models.VariantStatusGenerating)
	// Variant 2: generating but recently touched.
	store.setVariantStatus(order.ID, 2, models.VariantStatusGenerating)
	store.mu.Lock()
	for _, v := range store.variants[order.ID] {
		switch v.VariantNumber {
		case 1:
			v.UpdatedAt = time.Now().Add(-30 * time.Minute)
		case 2:
			v.UpdatedAt = time.Now()
		}
	}
	store.mu.Unlock()
	// Variant 3: complete, never touched by the sweep.
	store.setVariantStatus(order.ID, 3, models.VariantStatusComplete)

	reconciler := generation.NewReconciler(store, 10*time.Minute)
	moved, err := reconciler.Sweep()

	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)
	assert.Equal(t, models.VariantStatusPending, store.variantStatus(order.ID, 1))
	assert.Equal(t, models.VariantStatusGenerating, store.variantStatus(order.ID, 2))
	assert.Equal(t, models.VariantStatusComplete, store.variantStatus(order.ID, 3))
}

func TestReconciler_NothingStale(t *testing.T) {
	store := newFakeStore()
	order := store.addOrder(models.OrderStatusGenerating, models.OrderTypeBase, 2)
	store.setVariantStatus(order.ID, 1, models.VariantStatusGenerating)
	store.mu.Lock()
	for _, v := range store.variants[order.ID] {
		v.UpdatedAt = time.Now()
	}
	store.mu.Unlock()

	reconciler := generation.NewReconciler(store, 10*time.Minute)
	moved, err := reconciler.Sweep()

	require.NoError(t, err)
	assert.Zero(t, moved)
}
