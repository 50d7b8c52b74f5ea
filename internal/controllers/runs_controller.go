package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"navexport/internal/models"
	"navexport/internal/tasks"
)

// RunHistory lists stored run log entries, newest first.
type RunHistory interface {
	ListEntries(ctx context.Context, companyCode string, limit int) ([]models.RunLogEntry, error)
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type RunsController struct {
	History  RunHistory
	Enqueuer TaskEnqueuer
	Logger   *zap.Logger
	Now      func() time.Time
}

type TriggerRunRequest struct {
	PeriodFrom *string `json:"period_from"`
}

// ListRuns returns run log entries, optionally filtered by company_code
func (rc *RunsController) ListRuns(c *gin.Context) {
	if rc.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is not configured"})
		return
	}

	limit := rc.getLimitWithDefault(c, 50)
	entries, err := rc.History.ListEntries(c.Request.Context(), c.Query("company_code"), limit)
	if err != nil {
		rc.logger().Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": entries,
	})
}

// TriggerRun enqueues a manual export for the given week, or the previous
// week when the body is empty
func (rc *RunsController) TriggerRun(c *gin.Context) {
	if rc.Enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is not configured"})
		return
	}

	var req TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	window, err := tasks.ResolveWindow(req.PeriodFrom, rc.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from := window.FromString()
	task, err := tasks.NewWeeklyExportTask(&from, tasks.TriggerManual)
	if err != nil {
		rc.logger().Error("failed to create export task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	info, err := rc.Enqueuer.Enqueue(task)
	if err != nil {
		rc.logger().Error("failed to enqueue export task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":     info.ID,
		"period_from": window.FromString(),
		"period_to":   window.ToString(),
	})
}

func (rc *RunsController) logger() *zap.Logger {
	if rc.Logger == nil {
		return zap.NewNop()
	}
	return rc.Logger
}

func (rc *RunsController) now() time.Time {
	if rc.Now == nil {
		return time.Now()
	}
	return rc.Now()
}

func (rc *RunsController) getLimitWithDefault(c *gin.Context, defaultValue int) int {
	var err error
	limit := defaultValue
	if c.Query("limit") != "" {
		limit, err = strconv.Atoi(c.Query("limit"))
		if err != nil {
			rc.logger().Warn("failed to parse limit, using default value",
				zap.String("limit", c.Query("limit")),
				zap.Int("default", defaultValue),
			)
			return defaultValue
		}
	}
	return limit
}
