package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/property-be/internal/api/dto"
	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/cuongbtq/property-be/internal/queue/reporter"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultFailedJobsLimit = 20
	maxFailedJobsLimit     = 100
)

// QueueHandler serves queue health, stats and failed job management
type QueueHandler struct {
	logger     *slog.Logger
	reporter   QueueReporter
	failedJobs FailedJobStore
}

func NewQueueHandler(deps *Dependencies) *QueueHandler {
	return &QueueHandler{
		logger:     deps.Logger,
		reporter:   deps.Reporter,
		failedJobs: deps.FailedJobs,
	}
}

// Health handles GET /api/v1/queue/health
func (h *QueueHandler) Health(c *gin.Context) {
	health, err := h.reporter.Health(c.Request.Context())
	if err != nil {
		h.logger.Error("Queue health check failed", slog.String("error", err.Error()))
		respondError(c, statusFor(err), "Failed to retrieve queue health data", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, "", health)
}

// Stats handles GET /api/v1/queue/stats?queue=<name|all>&detailed=<bool>
func (h *QueueHandler) Stats(c *gin.Context) {
	var req dto.QueueStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}
	if req.Queue == "" {
		req.Queue = "all"
	}

	stats, err := h.reporter.Stats(c.Request.Context(), req.Queue, req.Detailed)
	if err != nil {
		h.logger.Error("Queue stats retrieval failed",
			slog.String("queue", req.Queue),
			slog.String("error", err.Error()),
		)
		respondError(c, statusFor(err), "Failed to retrieve queue statistics", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, "", stats)
}

// ListFailed handles GET /api/v1/queue/failed
func (h *QueueHandler) ListFailed(c *gin.Context) {
	var req dto.ListFailedJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultFailedJobsLimit
	}
	if req.Limit > maxFailedJobsLimit {
		req.Limit = maxFailedJobsLimit
	}

	failed, err := h.failedJobs.ListFailed(c.Request.Context(), req.Queue, req.Limit)
	if err != nil {
		h.logger.Error("Failed to list failed jobs", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to retrieve failed jobs", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, "", dto.NewFailedJobDTOs(failed))
}

// RetryFailed handles POST /api/v1/queue/failed/:id/retry
func (h *QueueHandler) RetryFailed(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid failed job id", "id must be a valid UUID")
		return
	}

	job, err := h.failedJobs.RetryFailed(c.Request.Context(), id)
	if err != nil {
		h.writeFailedJobError(c, id, err, "Failed to retry job")
		return
	}

	h.logger.Info("Failed job pushed back onto queue",
		slog.String("failed_job_id", id),
		slog.String("job_id", job.ID),
		slog.String("queue", job.Queue),
	)
	respondSuccess(c, http.StatusOK, "Failed job queued for retry", dto.RetryFailedJobResponse{JobID: job.ID, Queue: job.Queue})
}

// DeleteFailed handles DELETE /api/v1/queue/failed/:id
func (h *QueueHandler) DeleteFailed(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid failed job id", "id must be a valid UUID")
		return
	}

	if err := h.failedJobs.DeleteFailed(c.Request.Context(), id); err != nil {
		h.writeFailedJobError(c, id, err, "Failed to delete job")
		return
	}

	respondSuccess(c, http.StatusOK, "Failed job deleted", nil)
}

func (h *QueueHandler) writeFailedJobError(c *gin.Context, id string, err error, message string) {
	if errors.Is(err, queue.ErrJobNotFound) {
		respondError(c, http.StatusNotFound, "Failed job not found", err.Error())
		return
	}
	h.logger.Error(message, slog.String("failed_job_id", id), slog.String("error", err.Error()))
	respondError(c, http.StatusInternalServerError, message, err.Error())
}

func statusFor(err error) int {
	if errors.Is(err, reporter.ErrReportingUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
