package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

type GenerateHandler struct {
	dbClient *supabase.DatabaseClient
	stepper  *generation.Stepper
}

func NewGenerateHandler(dbClient *supabase.DatabaseClient, stepper *generation.Stepper) *GenerateHandler {
	return &GenerateHandler{
		dbClient: dbClient,
		stepper:  stepper,
	}
}

// Generate godoc
// @Summary     Advance generation by one variant
// @Description Trigger entrypoint for the incremental stepper: renders the first pending variant and reports how many remain, so the caller loops until a terminal signal. Idempotent; redundant calls on a settled order are no-ops.
// @Tags        generate
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.GenerateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders/{order_id}/generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
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

	result, err := h.stepper.Step(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "generation step failed",
			Message: err.Error(),
		})
		return
	}

	resp := models.GenerateResponse{
		OrderID:          orderID.String(),
		Signal:           string(result.Signal),
		RemainingPending: result.RemainingPending,
	}
	if result.Signal == generation.SignalGenerated {
		resp.VariantNumber = result.VariantNumber
	}
	c.JSON(http.StatusOK, resp)
}
