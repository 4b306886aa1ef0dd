// Package generation owns the order/variant state machine: the aggregation
// rule, the failure classifier, and the two drivers (incremental stepper and
// durable workflow) that advance variants through it. Both drivers share the
// same transition helpers so their semantics cannot drift apart.
package generation

import (
	"songcraft-backend/internal/models"
)

// StatusCounts tallies an order's variants per generation status.
type StatusCounts struct {
	Pending    int
	Generating int
	Complete   int
	Failed     int
}

func CountVariants(variants []models.SongVariant) StatusCounts {
	var c StatusCounts
	for _, v := range variants {
		switch v.GenerationStatus {
		case models.VariantStatusPending:
			c.Pending++
		case models.VariantStatusGenerating:
			c.Generating++
		case models.VariantStatusComplete:
			c.Complete++
		case models.VariantStatusFailed:
			c.Failed++
		}
	}
	return c
}

func (c StatusCounts) Total() int {
	return c.Pending + c.Generating + c.Complete + c.Failed
}

// Done counts variants that reached a terminal status.
func (c StatusCounts) Done() int {
	return c.Complete + c.Failed
}

// Settled reports whether no variant is still pending or generating, i.e.
// the aggregation rule may run.
func (c StatusCounts) Settled() bool {
	return c.Pending == 0 && c.Generating == 0
}

// FinalStatus applies the partial-success aggregation rule: one complete
// variant is enough for the order to count as completed; the customer just
// has fewer choices.
func (c StatusCounts) FinalStatus() string {
	if c.Complete > 0 {
		return models.OrderStatusCompleted
	}
	return models.OrderStatusFailed
}

// Summary is the read-only status view consumed by polling clients.
type Summary struct {
	OrderStatus string
	Counts      StatusCounts
}

// Summarize derives the polling view from an order and its variants. Pure
// function, no side effects.
func Summarize(order *models.Order, variants []models.SongVariant) Summary {
	return Summary{
		OrderStatus: order.Status,
		Counts:      CountVariants(variants),
	}
}

// CountsMap renders the tally with the status strings as keys, for JSON
// responses.
func (c StatusCounts) CountsMap() map[string]int {
	return map[string]int{
		models.VariantStatusPending:    c.Pending,
		models.VariantStatusGenerating: c.Generating,
		models.VariantStatusComplete:   c.Complete,
		models.VariantStatusFailed:     c.Failed,
	}
}

// BatchSize returns how many variants an order is rendered with: three for a
// base order, one for everything else.
func BatchSize(orderType string) int {
	if orderType == models.OrderTypeBase {
		return models.VariantsPerBaseOrder
	}
	return 1
}
