package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"songcraft-backend/internal/middleware"
	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

// requireUserID pulls the authenticated user id out of the context; it
// writes the error response itself so handlers can just return on !ok.
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

func parseParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// variantResponses maps variant rows to their API shape. Playback and share
// fields are only exposed once a variant is complete.
func variantResponses(storageClient *supabase.StorageClient, variants []models.SongVariant) []models.VariantResponse {
	out := make([]models.VariantResponse, 0, len(variants))
	for _, v := range variants {
		resp := models.VariantResponse{
			ID:            v.ID.String(),
			VariantNumber: v.VariantNumber,
			Status:        v.GenerationStatus,
			Selected:      v.Selected,
		}
		if v.GenerationStatus == models.VariantStatusComplete {
			resp.ShareToken = v.ShareToken
			resp.PlaybackURL = storageClient.PublicURL(v.UserID, v.StoragePath)
			if v.CompletedAt.Valid {
				t := v.CompletedAt.Time
				resp.CompletedAt = &t
			}
		}
		out = append(out, resp)
	}
	return out
}
