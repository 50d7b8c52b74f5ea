package main

import (
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"navexport/internal/config"
	"navexport/internal/db"
	"navexport/internal/logger"
	"navexport/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	// export metrics are served by the worker on METRICS_PORT
	deps := routes.Dependencies{
		Logger: zl,
	}

	if cfg.DatabaseURL != "" {
		conn, err := db.InitDB(cfg.DatabaseURL)
		if err != nil {
			zl.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := db.Migrate(conn); err != nil {
			zl.Fatal("Failed to migrate database", zap.Error(err))
		}
		deps.History = db.NewRunLogRepository(conn)
	} else {
		zl.Warn("DATABASE_URL not set, run history endpoint disabled")
	}

	if cfg.RedisURL != "" {
		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			zl.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		deps.Enqueuer = client
	} else {
		zl.Warn("REDIS_URL not set, manual runs disabled")
	}

	router := routes.SetupRouter(deps)

	serverAddr := fmt.Sprintf(":%s", cfg.APIPort)
	zl.Info("Starting server", zap.String("addr", serverAddr))
	if err := router.Run(serverAddr); err != nil {
		zl.Fatal("Failed to start server", zap.Error(err))
	}
}
