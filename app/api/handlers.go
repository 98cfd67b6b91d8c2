package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/ugc-review/app/chat"
	"github.com/lysyi3m/ugc-review/app/tasks"
)

const maxEventBodySize = 1 << 20

func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		approvals:     opts.Approvals,
		scheduler:     opts.Scheduler,
		events:        opts.Events,
		deduper:       opts.Deduper,
		sweeper:       opts.Sweeper,
		signingSecret: opts.SigningSecret,
		blobMaxAge:    opts.BlobMaxAge,
	}
}

// SlackEvents acknowledges an Events API delivery and queues message events
// for the workflow. Slack expects an answer within three seconds, so no
// processing happens inline.
func (h *Handler) SlackEvents(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBodySize))
	if err != nil {
		slog.Warn("Failed to read event body", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if err := chat.VerifyRequest(c.Request.Header, body, h.signingSecret); err != nil {
		slog.Warn("Rejected event request", "client_ip", c.ClientIP(), "error", err)
		c.Status(http.StatusUnauthorized)
		return
	}

	req, err := chat.ParseEventsRequest(body)
	if err != nil {
		slog.Warn("Failed to parse event request", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if req.Challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": req.Challenge})
		return
	}

	if req.Event == nil {
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()

	if req.EventID != "" {
		seen, err := h.deduper.Seen(ctx, req.EventID)
		if err != nil {
			slog.Warn("Event deduplication unavailable", "event_id", req.EventID, "error", err)
		} else if seen {
			slog.Debug("Duplicate event dropped", "event_id", req.EventID, "retry_num", c.GetHeader("X-Slack-Retry-Num"), "retry_reason", c.GetHeader("X-Slack-Retry-Reason"))
			c.Status(http.StatusOK)
			return
		}
	}

	task := tasks.NewHandleEventTask(*req.Event, h.events)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing event task", "event_id", req.EventID, "error", err)
		if req.EventID != "" {
			if forgetErr := h.deduper.Forget(ctx, req.EventID); forgetErr != nil {
				slog.Warn("Failed to release event for redelivery", "event_id", req.EventID, "error", forgetErr)
			}
		}
		c.Status(http.StatusServiceUnavailable)
		return
	}

	slog.Debug("Event queued", "event_id", req.EventID, "task_id", task.ID, "thread_id", task.Key)
	c.Status(http.StatusOK)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.approvals.GetApprovalCount(c.Request.Context()); err == nil {
		health["pending_approvals"] = count
	} else {
		slog.Error("Database error", "operation", "count_approvals", "error", err)
		health["status"] = "degraded"
	}

	stats := h.scheduler.GetStats()
	health["queue"] = map[string]interface{}{
		"size":     stats.QueueSize,
		"capacity": stats.QueueCapacity,
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := h.scheduler.GetStats()

	response := map[string]interface{}{
		"workers":              stats.CurrentWorkers,
		"queue_size":           stats.QueueSize,
		"queue_capacity":       stats.QueueCapacity,
		"total_processed":      stats.TotalProcessed,
		"total_errors":         stats.TotalErrors,
		"average_process_time": stats.AverageProcessTime.String(),
	}

	if stats.LastProcessedAt != nil {
		response["last_processed_at"] = stats.LastProcessedAt.Format(time.RFC3339)
	}

	if stats.TotalProcessed > 0 {
		response["error_rate"] = float64(stats.TotalErrors) / float64(stats.TotalProcessed)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListApprovals(c *gin.Context) {
	approvals, err := h.approvals.ListApprovals(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_approvals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"total":     len(approvals),
	})
}

func (h *Handler) APIGetApproval(c *gin.Context) {
	threadID := c.Param("thread")
	if threadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing thread parameter"})
		return
	}

	approval, err := h.approvals.GetApproval(c.Request.Context(), threadID)
	if err != nil {
		slog.Error("Database error", "operation", "get_approval", "thread_id", threadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if approval == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Approval not found"})
		return
	}

	c.JSON(http.StatusOK, approval)
}

func (h *Handler) APIDeleteApproval(c *gin.Context) {
	threadID := c.Param("thread")
	if threadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing thread parameter"})
		return
	}

	removed, err := h.approvals.DeleteApproval(c.Request.Context(), threadID)
	if err != nil {
		slog.Error("Database error", "operation", "delete_approval", "thread_id", threadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Approval not found"})
		return
	}

	slog.Info("Approval deleted by operator", "thread_id", threadID)
	c.JSON(http.StatusOK, gin.H{"success": true, "thread_id": threadID})
}

func (h *Handler) APIPurgeApprovals(c *gin.Context) {
	olderThan, err := time.ParseDuration(c.Query("older_than"))
	if err != nil || olderThan <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid older_than parameter",
			"message": "Provide a positive duration, e.g. older_than=168h",
		})
		return
	}

	task := tasks.NewPurgeApprovalsTask(h.approvals, olderThan)
	h.enqueue(c, task, gin.H{"older_than": olderThan.String()})
}

func (h *Handler) APISweepBlobs(c *gin.Context) {
	maxAge := h.blobMaxAge
	if raw := c.Query("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid older_than parameter"})
			return
		}
		maxAge = parsed
	}

	task := tasks.NewSweepBlobsTask(h.sweeper, maxAge)
	h.enqueue(c, task, gin.H{"older_than": maxAge.String()})
}

func (h *Handler) enqueue(c *gin.Context, task tasks.TaskInterface, details gin.H) {
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing task", "type", string(task.GetType()), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue task",
			"details": err.Error(),
		})
		return
	}

	details["success"] = true
	details["task"] = gin.H{
		"id":   task.GetID(),
		"type": task.GetType(),
	}

	c.JSON(http.StatusAccepted, details)
}
