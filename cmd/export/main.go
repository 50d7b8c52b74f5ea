// Command export runs one weekly export synchronously and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"navexport/internal/app"
	"navexport/internal/config"
	"navexport/internal/logger"
	"navexport/internal/tasks"
)

func main() {
	periodFrom := flag.String("period-from", "", "Monday of the week to export (YYYY-MM-DD); default is last week")
	flag.Parse()

	os.Exit(run(*periodFrom))
}

func run(periodFrom string) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, zl)
	if err != nil {
		zl.Error("Failed to initialize services", zap.Error(err))
		return 1
	}
	defer container.Close()

	var from *string
	if periodFrom != "" {
		from = &periodFrom
	}
	window, err := tasks.ResolveWindow(from, time.Now())
	if err != nil {
		zl.Error("Invalid export window", zap.Error(err))
		return 1
	}

	if container.Redis != nil {
		locker := tasks.NewRedisLocker(container.Redis)
		key := tasks.LockKey(window)
		token, ok, err := locker.TryLock(ctx, key, tasks.DefaultLockTTL)
		if err != nil {
			zl.Error("Failed to acquire export lock", zap.Error(err))
			return 1
		}
		if !ok {
			zl.Error("Export already running for window", zap.String("window", window.String()))
			return 1
		}
		defer func() {
			if err := locker.Release(context.Background(), key, token); err != nil {
				zl.Warn("Failed to release export lock", zap.Error(err))
			}
		}()
	}

	res, err := container.Runner.RunWindow(ctx, window)
	if err != nil {
		zl.Error("Export failed", zap.Error(err))
		return 1
	}

	out, err := json.Marshal(res)
	if err != nil {
		zl.Error("Failed to encode result", zap.Error(err))
		return 1
	}
	fmt.Println(string(out))
	return 0
}
