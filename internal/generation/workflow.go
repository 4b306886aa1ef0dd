package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
	"songcraft-backend/internal/workflow"
)

// Workflow drives all variants of an order inside one logical run, with
// engine-level retry and a dead-letter hook once the budget is exhausted.
// Every order that enters Run reaches a terminal status, even under total
// provider outage.
type Workflow struct {
	store          Store
	renderer       Renderer
	engine         *workflow.Engine
	events         EventSink
	rateLimitDelay time.Duration
}

func NewWorkflow(store Store, renderer Renderer, engine *workflow.Engine, rateLimitDelay time.Duration) *Workflow {
	return &Workflow{
		store:          store,
		renderer:       renderer,
		engine:         engine,
		rateLimitDelay: rateLimitDelay,
	}
}

// WithEvents attaches a sink for realtime progress events.
func (w *Workflow) WithEvents(events EventSink) *Workflow {
	w.events = events
	return w
}

// Run renders the order's variant batch. The whole step is retried by the
// engine, resuming from variant state: complete variants are skipped on
// replay, non-complete ones are re-attempted (a retry landing after partial
// progress may re-render a variant that another invocation completed in
// between; tolerated by design of the claim, see Renderer).
func (w *Workflow) Run(orderID, userID, customizationID uuid.UUID) error {
	attempt := 0
	step := func() error {
		attempt++
		return w.renderBatch(orderID, customizationID, attempt)
	}

	attempts, err := w.engine.Run(step)
	if err != nil {
		w.fail(orderID, userID, customizationID, attempts, err)
		return err
	}

	return w.finalize(orderID)
}

func (w *Workflow) renderBatch(orderID, customizationID uuid.UUID, attempt int) error {
	cust, err := w.store.GetCustomization(customizationID)
	if err != nil {
		// No customization means no generation can ever succeed.
		return workflow.NonRetriable(fmt.Errorf("failed to load customization: %w", err))
	}

	order, err := w.store.GetOrder(orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	if err := w.store.UpdateOrderStatus(orderID, models.OrderStatusGenerating); err != nil {
		return fmt.Errorf("failed to mark order generating: %w", err)
	}

	variants, err := w.store.EnsureVariantBatch(order, BatchSize(order.OrderType))
	if err != nil {
		return fmt.Errorf("failed to create variant batch: %w", err)
	}

	succeeded := 0
	var lastFailure error
	sawTransient := false
	for i := range variants {
		v := &variants[i]
		if v.GenerationStatus == models.VariantStatusComplete {
			succeeded++
			continue
		}

		renderErr := w.renderer.RenderVariant(order, cust, v, attempt > 1)
		if renderErr == nil {
			succeeded++
			continue
		}
		if errors.Is(renderErr, ErrAlreadyClaimed) {
			continue
		}

		switch Classify(renderErr) {
		case FailureRateLimited:
			return workflow.RetryAfter(RetryDelay(renderErr, w.rateLimitDelay), renderErr)
		case FailureNonRetriable:
			// The provider rejected this variant's request; its siblings may
			// still succeed, so the loop keeps going.
			if err := w.store.MarkVariantFailed(v.ID); err != nil {
				return fmt.Errorf("failed to mark variant failed: %w", err)
			}
			w.publish(orderID, "variant_failed", supabase.VariantFailedPayload(orderID, v.VariantNumber))
			log.Printf("variant %d of order %s rejected: %v", v.VariantNumber, orderID, renderErr)
			lastFailure = renderErr
		default:
			// Transient: fail this variant, keep its siblings going.
			if err := w.store.MarkVariantFailed(v.ID); err != nil {
				return fmt.Errorf("failed to mark variant failed: %w", err)
			}
			w.publish(orderID, "variant_failed", supabase.VariantFailedPayload(orderID, v.VariantNumber))
			log.Printf("variant %d of order %s failed: %v", v.VariantNumber, orderID, renderErr)
			lastFailure = renderErr
			sawTransient = true
		}
	}

	if succeeded == 0 {
		err := fmt.Errorf("no variants generated for order %s", orderID)
		if lastFailure != nil {
			err = fmt.Errorf("no variants generated for order %s: %w", orderID, lastFailure)
		}
		if lastFailure != nil && !sawTransient {
			// Every failure was a rejection; replaying the same inputs
			// cannot succeed.
			return workflow.NonRetriable(err)
		}
		return err
	}
	return nil
}

func (w *Workflow) finalize(orderID uuid.UUID) error {
	variants, err := w.store.VariantsByOrder(orderID)
	if err != nil {
		return fmt.Errorf("failed to reload variants: %w", err)
	}
	counts := CountVariants(variants)
	if !counts.Settled() {
		// Another worker still holds a variant; it will finalize.
		return nil
	}
	status := counts.FinalStatus()
	if err := w.store.UpdateOrderStatus(orderID, status); err != nil {
		return fmt.Errorf("failed to finalize order: %w", err)
	}
	w.publish(orderID, "order_finalized", supabase.OrderFinalizedPayload(orderID, status, counts.Complete))
	return nil
}

// fail is the dead-letter hook: it records the exhausted run, resolves every
// variant still pending or generating to failed, and applies the aggregation
// rule, so a terminal order never carries a non-terminal variant.
func (w *Workflow) fail(orderID, userID, customizationID uuid.UUID, attempts int, cause error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":         orderID.String(),
		"user_id":          userID.String(),
		"customization_id": customizationID.String(),
	})
	job := &models.FailedJob{
		JobType:      "generate_order",
		EventData:    payload,
		ErrorMessage: cause.Error(),
		RetryCount:   attempts,
		FailedAt:     time.Now(),
	}
	if err := w.store.CreateFailedJob(job); err != nil {
		log.Printf("failed to record dead letter for order %s: %v", orderID, err)
	}

	variants, err := w.store.VariantsByOrder(orderID)
	if err != nil {
		log.Printf("failed to load variants of order %s: %v", orderID, err)
		if err := w.store.UpdateOrderStatus(orderID, models.OrderStatusFailed); err != nil {
			log.Printf("failed to force order %s to failed: %v", orderID, err)
		}
		return
	}

	for i := range variants {
		v := &variants[i]
		if v.GenerationStatus != models.VariantStatusPending && v.GenerationStatus != models.VariantStatusGenerating {
			continue
		}
		if err := w.store.MarkVariantFailed(v.ID); err != nil {
			log.Printf("failed to mark variant %d of order %s failed: %v", v.VariantNumber, orderID, err)
			continue
		}
		v.GenerationStatus = models.VariantStatusFailed
		w.publish(orderID, "variant_failed", supabase.VariantFailedPayload(orderID, v.VariantNumber))
	}

	counts := CountVariants(variants)
	status := counts.FinalStatus()
	if err := w.store.UpdateOrderStatus(orderID, status); err != nil {
		log.Printf("failed to finalize order %s: %v", orderID, err)
		return
	}
	w.publish(orderID, "order_finalized", supabase.OrderFinalizedPayload(orderID, status, counts.Complete))
}

func (w *Workflow) publish(orderID uuid.UUID, event string, payload map[string]interface{}) {
	if w.events == nil {
		return
	}
	_ = w.events.PublishOrderEvent(orderID, event, payload)
}
