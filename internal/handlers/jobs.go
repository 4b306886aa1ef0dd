package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"songcraft-backend/internal/models"
	"songcraft-backend/internal/supabase"
)

type FailedJobsHandler struct {
	dbClient *supabase.DatabaseClient
}

func NewFailedJobsHandler(dbClient *supabase.DatabaseClient) *FailedJobsHandler {
	return &FailedJobsHandler{dbClient: dbClient}
}

// ListFailedJobs godoc
// @Summary     List unresolved dead letters
// @Description Operator triage view: generation attempts that failed outright or exhausted their retry budget, oldest first.
// @Tags        failed-jobs
// @Produce     json
// @Security    Bearer
// @Success     200 {object} map[string]interface{}
// @Failure     500 {object} models.ErrorResponse
// @Router      /failed-jobs [get]
func (h *FailedJobsHandler) ListFailedJobs(c *gin.Context) {
	jobs, err := h.dbClient.ListUnresolvedFailedJobs(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list jobs",
			Message: err.Error(),
		})
		return
	}

	out := make([]gin.H, 0, len(jobs))
	for _, j := range jobs {
		entry := gin.H{
			"job_id":        j.ID.String(),
			"job_type":      j.JobType,
			"error_message": j.ErrorMessage,
			"retry_count":   j.RetryCount,
			"failed_at":     j.FailedAt,
		}
		var eventData map[string]interface{}
		if json.Unmarshal(j.EventData, &eventData) == nil {
			entry["event_data"] = eventData
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"failed_jobs": out})
}

// ResolveFailedJob godoc
// @Summary     Resolve a dead letter
// @Description Marks a failed job as triaged with optional operator notes. Already-resolved jobs are not re-resolved.
// @Tags        failed-jobs
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       job_id path string true "Job ID (UUID)"
// @Param       request body models.ResolveFailedJobRequest false "Resolution notes"
// @Success     200 {object} map[string]string
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /failed-jobs/{job_id}/resolve [post]
func (h *FailedJobsHandler) ResolveFailedJob(c *gin.Context) {
	jobID, ok := parseParamUUID(c, "job_id")
	if !ok {
		return
	}

	var req models.ResolveFailedJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid request body",
				Message: err.Error(),
			})
			return
		}
	}

	resolved, err := h.dbClient.ResolveFailedJob(jobID, req.Notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to resolve job",
			Message: err.Error(),
		})
		return
	}
	if !resolved {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "job not found or already resolved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
