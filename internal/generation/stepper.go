package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

// Signal tells the caller what a step invocation did and whether to call
// again.
type Signal string

const (
	// SignalGenerated means one variant was handled; call again while
	// RemainingPending > 0.
	SignalGenerated   Signal = "generated"
	SignalAllComplete Signal = "all_complete"
	SignalAllFailed   Signal = "all_failed"
	// SignalNoPending is the defensive case of an order with no variants at
	// all.
	SignalNoPending Signal = "no_pending"
)

type StepResult struct {
	Signal           Signal
	VariantID        uuid.UUID
	VariantNumber    int
	RemainingPending int
}

// Stepper drives one order one variant at a time. Each invocation does
// bounded work and hands control back, so it fits execution environments
// with a short hard wall-clock limit; the caller loops on SignalGenerated.
// It does not retry within a single call: retrying is the caller's
// responsibility, by re-invoking.
type Stepper struct {
	store    Store
	renderer Renderer
	events   EventSink
}

func NewStepper(store Store, renderer Renderer) *Stepper {
	return &Stepper{store: store, renderer: renderer}
}

// WithEvents attaches a sink for realtime progress events.
func (s *Stepper) WithEvents(events EventSink) *Stepper {
	s.events = events
	return s
}

// Step processes the first pending variant of the order, if any. Safe to
// call repeatedly: once no pending variants remain it is a read-only no-op.
func (s *Stepper) Step(orderID uuid.UUID) (*StepResult, error) {
	order, err := s.store.GetOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	variants, err := s.store.VariantsByOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	if len(variants) == 0 {
		return &StepResult{Signal: SignalNoPending}, nil
	}

	next := firstPending(variants)
	if next == nil {
		counts := CountVariants(variants)
		if counts.Complete > 0 {
			return &StepResult{Signal: SignalAllComplete}, nil
		}
		return &StepResult{Signal: SignalAllFailed}, nil
	}

	if order.Status == models.OrderStatusPaid {
		if err := s.store.UpdateOrderStatus(orderID, models.OrderStatusGenerating); err != nil {
			return nil, fmt.Errorf("failed to mark order generating: %w", err)
		}
	}

	cust, err := s.store.GetCustomization(order.CustomizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customization: %w", err)
	}

	if err := s.renderer.RenderVariant(order, cust, next, false); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			// Another worker holds this variant; tell the caller to come
			// back for the rest.
			return s.finishStep(orderID, next)
		}
		if markErr := s.store.MarkVariantFailed(next.ID); markErr != nil {
			return nil, fmt.Errorf("failed to mark variant failed: %w", markErr)
		}
		if dlErr := s.recordFailure(order, next, err); dlErr != nil {
			return nil, fmt.Errorf("failed to record dead letter: %w", dlErr)
		}
		s.publish(orderID, "variant_failed", supabase.VariantFailedPayload(orderID, next.VariantNumber))
	}

	return s.finishStep(orderID, next)
}

// finishStep recomputes the remaining pending count and, when the order has
// settled, applies the aggregation rule to finalize it.
func (s *Stepper) finishStep(orderID uuid.UUID, processed *models.SongVariant) (*StepResult, error) {
	variants, err := s.store.VariantsByOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload variants: %w", err)
	}

	remaining := 0
	for _, v := range variants {
		if v.ID != processed.ID && v.GenerationStatus == models.VariantStatusPending {
			remaining++
		}
	}

	result := &StepResult{
		Signal:           SignalGenerated,
		VariantID:        processed.ID,
		VariantNumber:    processed.VariantNumber,
		RemainingPending: remaining,
	}

	if remaining == 0 {
		counts := CountVariants(variants)
		if counts.Settled() {
			status := counts.FinalStatus()
			if err := s.store.UpdateOrderStatus(orderID, status); err != nil {
				return nil, fmt.Errorf("failed to finalize order: %w", err)
			}
			s.publish(orderID, "order_finalized", supabase.OrderFinalizedPayload(orderID, status, counts.Complete))
		}
	}

	return result, nil
}

func (s *Stepper) publish(orderID uuid.UUID, event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishOrderEvent(orderID, event, payload)
}

func (s *Stepper) recordFailure(order *models.Order, variant *models.SongVariant, cause error) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":       order.ID.String(),
		"user_id":        order.UserID.String(),
		"variant_id":     variant.ID.String(),
		"variant_number": variant.VariantNumber,
	})
	return s.store.CreateFailedJob(&models.FailedJob{
		JobType:      "generate_variant",
		EventData:    payload,
		ErrorMessage: cause.Error(),
		RetryCount:   0,
		FailedAt:     time.Now(),
	})
}

func firstPending(variants []models.SongVariant) *models.SongVariant {
	for i := range variants {
		if variants[i].GenerationStatus == models.VariantStatusPending {
			return &variants[i]
		}
	}
	return nil
}
