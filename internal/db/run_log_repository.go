package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"navexport/internal/models"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// RunLogRepository stores run log entries as queryable history.
type RunLogRepository struct {
	DB *gorm.DB
}

func NewRunLogRepository(db *gorm.DB) *RunLogRepository {
	return &RunLogRepository{DB: db}
}

// RecordEntries inserts all entries of one run.
func (r *RunLogRepository) RecordEntries(ctx context.Context, entries []models.RunLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]models.RunLogEntry, len(entries))
	copy(rows, entries)
	for i := range rows {
		rows[i].ID = 0
	}

	if err := gorm.G[models.RunLogEntry](r.DB).CreateInBatches(ctx, &rows, 100); err != nil {
		return fmt.Errorf("failed to record run log entries: %w", err)
	}
	return nil
}

// ListEntries returns the newest entries first, optionally for one company.
func (r *RunLogRepository) ListEntries(ctx context.Context, companyCode string, limit int) ([]models.RunLogEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	q := gorm.G[models.RunLogEntry](r.DB).Order("processed_at DESC").Order("id DESC").Limit(limit)
	if companyCode != "" {
		q = q.Where("company_code = ?", companyCode)
	}

	entries, err := q.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list run log entries: %w", err)
	}
	return entries, nil
}
