package generation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"songcraft-backend/internal/models"
)

// ErrAlreadyClaimed is returned by a Renderer when the conditional claim on
// a variant affected zero rows: another worker holds it.
var ErrAlreadyClaimed = errors.New("variant already claimed by another worker")

// Store is the slice of the ledger store the drivers need. Variants are
// always returned ordered by ascending variant number.
type Store interface {
	GetOrder(orderID uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(orderID uuid.UUID, status string) error
	GetCustomization(customizationID uuid.UUID) (*models.Customization, error)
	VariantsByOrder(orderID uuid.UUID) ([]models.SongVariant, error)
	// EnsureVariantBatch creates the order's initial variant rows if they do
	// not exist yet. A uniqueness conflict means a previous partial run (or
	// the intake path) already created them; the existing rows are read back
	// instead of erroring.
	EnsureVariantBatch(order *models.Order, count int) ([]models.SongVariant, error)
	MarkVariantFailed(variantID uuid.UUID) error
	CreateFailedJob(job *models.FailedJob) error
	// RequeueStaleVariants moves variants stuck in generating longer than
	// olderThan back to pending and returns how many rows moved.
	RequeueStaleVariants(olderThan time.Duration) (int64, error)
}

// Renderer performs one variant's claim -> generate -> upload -> complete
// sequence. reclaim loosens the claim to non-complete statuses so a workflow
// retry can re-attempt variants left generating or failed by an earlier
// partial run.
type Renderer interface {
	RenderVariant(order *models.Order, cust *models.Customization, variant *models.SongVariant, reclaim bool) error
}

// EventSink pushes order progress to subscribed clients. Publishing is best
// effort; the polling status endpoint stays the source of truth.
type EventSink interface {
	PublishOrderEvent(orderID uuid.UUID, event string, payload map[string]interface{}) error
}
