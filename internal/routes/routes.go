package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"navexport/internal/controllers"
)

// Dependencies are the services the API exposes. Nil History or Enqueuer
// makes the matching endpoints answer 503; /metrics is only served when
// Gatherer is set.
type Dependencies struct {
	History  controllers.RunHistory
	Enqueuer controllers.TaskEnqueuer
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// SetupRouter initializes all controllers and API routes
func SetupRouter(deps Dependencies) *gin.Engine {
	runsController := controllers.RunsController{
		History:  deps.History,
		Enqueuer: deps.Enqueuer,
		Logger:   deps.Logger,
	}

	// Set up Gin router
	router := gin.Default()

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Group API routes under /api/v1
	api := router.Group("/api/v1")
	{
		runs := api.Group("/runs")
		{
			// GET /api/v1/runs?company_code=&limit=
			runs.GET("", runsController.ListRuns)
			// POST /api/v1/runs {"period_from": "YYYY-MM-DD"}
			runs.POST("", runsController.TriggerRun)
		}
	}

	return router
}
