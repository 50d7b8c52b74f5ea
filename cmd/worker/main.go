package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"navexport/internal/app"
	"navexport/internal/config"
	"navexport/internal/controllers"
	"navexport/internal/logger"
	"navexport/internal/routes"
	"navexport/internal/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx := context.Background()
	container, err := app.NewContainer(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer container.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		zl.Fatal("Failed to parse Redis URL", zap.Error(err))
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	exportTask, err := tasks.NewWeeklyExportTask(nil, tasks.TriggerSchedule)
	if err != nil {
		zl.Fatal("Failed to create weekly export task", zap.Error(err))
	}

	entryID, err := scheduler.Register(cfg.ExportSchedule, exportTask, asynq.Queue("default"))
	if err != nil {
		zl.Fatal("Failed to register periodic task", zap.Error(err))
	}
	zl.Info("Registered periodic task",
		zap.String("type", exportTask.Type()),
		zap.String("schedule", cfg.ExportSchedule),
		zap.String("entry_id", entryID),
	)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				"default": 1,
			},
			// companies are processed sequentially; one export at a time
			Concurrency: 1,
		},
	)

	var locker tasks.Locker
	if container.Redis != nil {
		locker = tasks.NewRedisLocker(container.Redis)
	} else {
		zl.Warn("Redis client unavailable, exports run without a window lock")
	}
	taskProcessor := tasks.NewTaskProcessor(container.Runner, locker, zl)

	mux := asynq.NewServeMux()
	mux.HandleFunc(
		tasks.TypeTaskWeeklyExport,
		taskProcessor.HandleWeeklyExportTask,
	)

	gin.SetMode(gin.ReleaseMode)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.MetricsPort),
		Handler: routes.SetupRouter(routes.Dependencies{
			History:  historyOrNil(container),
			Gatherer: container.Registry,
			Logger:   zl,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		zl.Info("Starting Asynq scheduler...")
		if err := scheduler.Run(); err != nil {
			zl.Fatal("Could not run Asynq scheduler", zap.Error(err))
		}
	}()

	go func() {
		zl.Info("Starting Asynq worker server...")
		if err := srv.Run(mux); err != nil {
			zl.Fatal("Could not run Asynq worker server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	zl.Info("Shutdown signal received, shutting down gracefully...")

	scheduler.Shutdown()
	zl.Info("Asynq scheduler shut down.")

	srv.Shutdown()
	zl.Info("Asynq worker server shut down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zl.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	zl.Info("Worker process shut down complete.")
}

// historyOrNil keeps a nil repository from becoming a non-nil interface.
func historyOrNil(c *app.Container) controllers.RunHistory {
	if c.History == nil {
		return nil
	}
	return c.History
}
