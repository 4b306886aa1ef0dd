package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

type VariantsHandler struct {
	dbClient      *supabase.DatabaseClient
	storageClient *supabase.StorageClient
}

func NewVariantsHandler(dbClient *supabase.DatabaseClient, storageClient *supabase.StorageClient) *VariantsHandler {
	return &VariantsHandler{
		dbClient:      dbClient,
		storageClient: storageClient,
	}
}

// ListVariants godoc
// @Summary     List an order's variants
// @Tags        variants
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.VariantListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/variants [get]
func (h *VariantsHandler) ListVariants(c *gin.Context) {
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

	variants, err := h.dbClient.VariantsByOrder(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to load variants",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.VariantListResponse{
		OrderID:  orderID.String(),
		Variants: variantResponses(h.storageClient, variants),
	})
}

// SelectVariant godoc
// @Summary     Pick a variant
// @Description Marks one complete variant as the customer's pick; any earlier pick on the same order is cleared in the same transaction.
// @Tags        variants
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Param       variant_id path string true "Variant ID (UUID)"
// @Success     200 {object} map[string]string
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/variants/{variant_id}/select [post]
func (h *VariantsHandler) SelectVariant(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseParamUUID(c, "order_id")
	if !ok {
		return
	}
	variantID, ok := parseParamUUID(c, "variant_id")
	if !ok {
		return
	}

	if err := h.dbClient.SelectVariant(orderID, variantID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "variant not found or not complete",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to select variant",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "selected"})
}

// DownloadVariant godoc
// @Summary     Download a variant's audio
// @Description Streams the rendered MP3 for a complete variant of the caller's order.
// @Tags        variants
// @Produce     audio/mpeg
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Param       variant_id path string true "Variant ID (UUID)"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /orders/{order_id}/variants/{variant_id}/audio [get]
func (h *VariantsHandler) DownloadVariant(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseParamUUID(c, "order_id")
	if !ok {
		return
	}
	variantID, ok := parseParamUUID(c, "variant_id")
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

	variants, err := h.dbClient.VariantsByOrder(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to load variants",
			Message: err.Error(),
		})
		return
	}

	var variant *models.SongVariant
	for i := range variants {
		if variants[i].ID == variantID {
			variant = &variants[i]
			break
		}
	}
	if variant == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "variant not found"})
		return
	}
	if variant.GenerationStatus != models.VariantStatusComplete {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "song not ready yet"})
		return
	}

	data, err := h.storageClient.DownloadAudio(variant.UserID, variant.StoragePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to download audio",
			Message: err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", data)
}

// SharePlayback godoc
// @Summary     Unauthenticated playback via share token
// @Tags        variants
// @Produce     json
// @Param       token path string true "Share token"
// @Success     200 {object} models.SharePlaybackResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /share/{token} [get]
func (h *VariantsHandler) SharePlayback(c *gin.Context) {
	token := c.Param("token")

	variant, err := h.dbClient.GetVariantByShareToken(token)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "share link not found"})
		return
	}

	if variant.GenerationStatus != models.VariantStatusComplete {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "song not ready yet"})
		return
	}

	c.JSON(http.StatusOK, models.SharePlaybackResponse{
		VariantNumber: variant.VariantNumber,
		PlaybackURL:   h.storageClient.PublicURL(variant.UserID, variant.StoragePath),
	})
}
