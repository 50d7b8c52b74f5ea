package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"navexport/internal/config"
	"navexport/internal/export"
	"navexport/internal/models"
)

const (
	lockKeyPrefix = "navexport:lock:"

	DefaultLockTTL = 2 * time.Hour
)

// ErrRunInProgress is returned when another export holds the window's lock.
var ErrRunInProgress = errors.New("export for this window is already running")

// Exporter runs one export over a window.
type Exporter interface {
	RunWindow(ctx context.Context, window models.QueryWindow) (*export.RunResult, error)
}

// TaskProcessor holds dependencies for our task handlers
type TaskProcessor struct {
	exporter Exporter
	locker   Locker
	lockTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type ProcessorOption func(*TaskProcessor)

func WithLockTTL(ttl time.Duration) ProcessorOption {
	return func(p *TaskProcessor) {
		p.lockTTL = ttl
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *TaskProcessor) {
		p.now = now
	}
}

// NewTaskProcessor creates a new TaskProcessor. A nil locker disables locking.
func NewTaskProcessor(exporter Exporter, locker Locker, logger *zap.Logger, opts ...ProcessorOption) *TaskProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &TaskProcessor{
		exporter: exporter,
		locker:   locker,
		lockTTL:  DefaultLockTTL,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *TaskProcessor) HandleWeeklyExportTask(ctx context.Context, t *asynq.Task) error {
	var payload WeeklyExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	window, err := ResolveWindow(payload.PeriodFrom, p.now())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger := p.logger.With(
		zap.String("period_from", window.FromString()),
		zap.String("period_to", window.ToString()),
		zap.String("trigger", payload.Trigger),
	)

	if p.locker != nil {
		key := LockKey(window)
		token, ok, err := p.locker.TryLock(ctx, key, p.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire export lock: %w", err)
		}
		if !ok {
			logger.Warn("export already running for window, skipping")
			return fmt.Errorf("%w: %w", ErrRunInProgress, asynq.SkipRetry)
		}
		defer func() {
			// the run may have consumed ctx; release with a fresh one
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.locker.Release(releaseCtx, key, token); err != nil {
				logger.Error("failed to release export lock", zap.Error(err))
			}
		}()
	}

	logger.Info("starting weekly export")

	res, err := p.exporter.RunWindow(ctx, window)
	if err != nil {
		var schemaErr *export.SchemaError
		if errors.As(err, &schemaErr) || errors.Is(err, config.ErrMissingEnv) {
			return fmt.Errorf("weekly export: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("weekly export: %w", err)
	}

	if w := t.ResultWriter(); w != nil {
		if body, err := json.Marshal(res); err == nil {
			if _, err := w.Write(body); err != nil {
				logger.Warn("failed to write task result", zap.Error(err))
			}
		}
	}

	logger.Info("weekly export finished",
		zap.Int("companies", res.Companies),
		zap.Int("failed", res.Failed),
	)
	return nil
}

// LockKey names the lock held while window is being exported.
func LockKey(window models.QueryWindow) string {
	return lockKeyPrefix + window.String()
}

// ResolveWindow returns the Monday..Sunday week starting at periodFrom, or
// the week before now when periodFrom is nil.
func ResolveWindow(periodFrom *string, now time.Time) (models.QueryWindow, error) {
	if periodFrom == nil || *periodFrom == "" {
		return models.PreviousWeek(now.UTC()), nil
	}

	from, err := time.Parse("2006-01-02", *periodFrom)
	if err != nil {
		return models.QueryWindow{}, fmt.Errorf("invalid period_from %q", *periodFrom)
	}
	if from.Weekday() != time.Monday {
		return models.QueryWindow{}, fmt.Errorf("period_from %s is not a Monday", *periodFrom)
	}
	return models.QueryWindow{From: from, To: from.AddDate(0, 0, 6)}, nil
}
