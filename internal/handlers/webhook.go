package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"songcraft-backend/internal/config"
	"songcraft-backend/internal/models"
)

// CheckoutStore is the slice of the ledger store the checkout webhook needs.
type CheckoutStore interface {
	GetOrder(orderID uuid.UUID) (*models.Order, error)
	// MarkOrderPaid advances pending -> paid conditionally; false means a
	// previous delivery already won the transition.
	MarkOrderPaid(orderID uuid.UUID) (bool, error)
	// CreateBundle is idempotent per purchase order.
	CreateBundle(bundle *models.Bundle) error
}

// WorkflowRunner launches the durable generation run for a paid order.
type WorkflowRunner interface {
	Run(orderID, userID, customizationID uuid.UUID) error
}

type WebhookHandler struct {
	config   *config.Config
	store    CheckoutStore
	workflow WorkflowRunner
}

func NewWebhookHandler(cfg *config.Config, store CheckoutStore, workflow WorkflowRunner) *WebhookHandler {
	return &WebhookHandler{
		config:   cfg,
		store:    store,
		workflow: workflow,
	}
}

// CheckoutWebhookEvent is the payment collaborator's completion callback.
type CheckoutWebhookEvent struct {
	Event   string `json:"event"` // "checkout.completed"
	OrderID string `json:"order_id"`
	// Bundle purchases carry the credit block being granted.
	BundleTier string `json:"bundle_tier,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
}

// HandleCheckout godoc
// @Summary     Checkout completion webhook
// @Description Receives the payment collaborator's completion event. Delivery is at-least-once: the pending->paid transition is conditional, so replays and the client-side fallback poller cannot double-start generation.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Authorization header string true "Webhook secret"
// @Success     200 {object} map[string]string
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /webhooks/checkout [post]
func (h *WebhookHandler) HandleCheckout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing authorization token"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if h.config.CheckoutWebhookSecret != "" && token != h.config.CheckoutWebhookSecret {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid authorization token"})
		return
	}

	var event CheckoutWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse event",
			Message: err.Error(),
		})
		return
	}

	if event.Event != "checkout.completed" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "order not found"})
		return
	}

	// Credits are granted before the paid transition. CreateBundle is
	// idempotent per order, so if the insert fails here the order is still
	// pending and the provider's retry reaches it again; once both steps
	// succeed, a replay stops at the conditional transition below.
	if order.OrderType == models.OrderTypeBundle {
		quantity := event.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if err := h.store.CreateBundle(&models.Bundle{
			ID:                uuid.New(),
			UserID:            order.UserID,
			OrderID:           order.ID,
			BundleTier:        event.BundleTier,
			QuantityPurchased: quantity,
			QuantityRemaining: quantity,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to create bundle",
				Message: err.Error(),
			})
			return
		}
	}

	won, err := h.store.MarkOrderPaid(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to mark order paid",
			Message: err.Error(),
		})
		return
	}
	if !won {
		// Replayed delivery; the first one already advanced the order.
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "already processed"})
		return
	}

	if order.OrderType == models.OrderTypeBundle {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	go h.workflow.Run(order.ID, order.UserID, order.CustomizationID)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
