package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songcraft-backend/internal/credits"
	"songcraft-backend/internal/models"
)

type CreditsHandler struct {
	ledger *credits.Ledger
}

func NewCreditsHandler(ledger *credits.Ledger) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// GetBalance godoc
// @Summary     Remaining prepaid credits
// @Description Sum of quantity_remaining across the caller's unexpired bundles; the intake UI uses this to offer the skip-payment path.
// @Tags        credits
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.BalanceResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /credits/balance [get]
func (h *CreditsHandler) GetBalance(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get balance",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{CreditsRemaining: balance})
}
