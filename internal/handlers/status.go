package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

type StatusHandler struct {
	dbClient      *supabase.DatabaseClient
	storageClient *supabase.StorageClient
}

func NewStatusHandler(dbClient *supabase.DatabaseClient, storageClient *supabase.StorageClient) *StatusHandler {
	return &StatusHandler{
		dbClient:      dbClient,
		storageClient: storageClient,
	}
}

// GetStatus godoc
// @Summary     Order generation status
// @Description Polling endpoint: order status plus per-variant statuses and counts, so a client can distinguish "still generating, N of M done" from a finalized order.
// @Tags        status
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.StatusResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/status [get]
func (h *StatusHandler) GetStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseParamUUID(c, "order_id")
	if !ok {
		return
	}

	order, err := h.dbClient.GetOrderForUser(orderID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "order not found",
			Message: err.Error(),
		})
		return
	}

	variants, err := h.dbClient.VariantsByOrder(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to load variants",
			Message: err.Error(),
		})
		return
	}

	summary := generation.Summarize(order, variants)
	c.JSON(http.StatusOK, models.StatusResponse{
		OrderID:   order.ID.String(),
		Status:    summary.OrderStatus,
		Counts:    summary.Counts.CountsMap(),
		Total:     summary.Counts.Total(),
		Done:      summary.Counts.Done(),
		Variants:  variantResponses(h.storageClient, variants),
		UpdatedAt: order.UpdatedAt,
	})
}
