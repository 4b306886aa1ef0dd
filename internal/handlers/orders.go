package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"songcraft-backend/internal/credits"
	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

type OrdersHandler struct {
	dbClient *supabase.DatabaseClient
	ledger   *credits.Ledger
	workflow *generation.Workflow
}

func NewOrdersHandler(dbClient *supabase.DatabaseClient, ledger *credits.Ledger, workflow *generation.Workflow) *OrdersHandler {
	return &OrdersHandler{
		dbClient: dbClient,
		ledger:   ledger,
		workflow: workflow,
	}
}

// CreateOrder godoc
// @Summary     Create a new song order
// @Description Creates an order for a personalised song. With payment_method "credit" a prepaid bundle credit is redeemed and the order skips payment; if no credit is available the order is created pending and the caller falls back to card checkout.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateOrderRequest true "Order details"
// @Success     201 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders [post]
func (h *OrdersHandler) CreateOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	customizationID, err := uuid.Parse(req.CustomizationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid customization id"})
		return
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = models.OrderTypeBase
	}
	switch orderType {
	case models.OrderTypeBase, models.OrderTypeUpsell, models.OrderTypeBundle:
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order type"})
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCard
	}

	var occasionDate sql.NullTime
	if req.OccasionDate != "" {
		t, err := time.Parse(time.RFC3339, req.OccasionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid occasion date"})
			return
		}
		occasionDate = sql.NullTime{Time: t, Valid: true}
	}

	// A redeemed credit skips payment entirely: the order starts out paid.
	// A lost race or empty balance is not an error; the order is created
	// pending and the caller takes the card checkout path.
	status := models.OrderStatusPending
	creditRedeemed := false
	creditsLeft := 0
	if paymentMethod == models.PaymentMethodCredit && orderType != models.OrderTypeBundle {
		result, err := h.ledger.Redeem(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to redeem credit",
				Message: err.Error(),
			})
			return
		}
		if result.Redeemed {
			status = models.OrderStatusPaid
			creditRedeemed = true
			creditsLeft = result.Remaining
		} else {
			paymentMethod = models.PaymentMethodCard
		}
	}

	order, err := h.dbClient.CreateOrder(&models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		CustomizationID: customizationID,
		Status:          status,
		Amount:          req.Amount,
		OrderType:       orderType,
		PaymentMethod:   paymentMethod,
		OccasionDate:    occasionDate,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create order",
			Message: err.Error(),
		})
		return
	}

	if orderType != models.OrderTypeBundle {
		if _, err := h.dbClient.EnsureVariantBatch(order, generation.BatchSize(orderType)); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to create variants",
				Message: err.Error(),
			})
			return
		}
	}

	// Prepaid orders start generating immediately; paid checkout orders wait
	// for the payment webhook.
	if creditRedeemed {
		go h.workflow.Run(order.ID, order.UserID, order.CustomizationID)
	}

	c.JSON(http.StatusCreated, models.OrderResponse{
		ID:             order.ID.String(),
		Status:         order.Status,
		OrderType:      order.OrderType,
		Amount:         order.Amount,
		PaymentMethod:  order.PaymentMethod,
		TweakCount:     order.TweakCount,
		CreditRedeemed: creditRedeemed,
		CreditsLeft:    creditsLeft,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	})
}

// CreateTweak godoc
// @Summary     Request a tweak
// @Description Appends one new pending variant to the order and re-opens generation. A completed order flips back to generating until the new variant resolves.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.TweakResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders/{order_id}/tweaks [post]
func (h *OrdersHandler) CreateTweak(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseParamUUID(c, "order_id")
	if !ok {
		return
	}

	if _, err := h.dbClient.GetOrderForUser(orderID, userID); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "order not found",
			Message: err.Error(),
		})
		return
	}

	variant, order, err := h.dbClient.AppendVariant(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create tweak variant",
			Message: err.Error(),
		})
		return
	}

	go h.workflow.Run(order.ID, order.UserID, order.CustomizationID)

	c.JSON(http.StatusOK, models.TweakResponse{
		OrderID:       order.ID.String(),
		VariantID:     variant.ID.String(),
		VariantNumber: variant.VariantNumber,
		OrderStatus:   order.Status,
		TweakCount:    order.TweakCount,
	})
}
