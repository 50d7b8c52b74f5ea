package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// This file defines the "types" and "payloads" for our async tasks.

// Task type names
const (
	TypeTaskWeeklyExport = "task:weekly_invoice_export"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// --- WeeklyExport Task ---

// WeeklyExportPayload selects the week to export. A nil PeriodFrom means the
// week before the task runs.
type WeeklyExportPayload struct {
	PeriodFrom *string `json:"period_from"`
	Trigger    string  `json:"trigger"`
}

// NewWeeklyExportTask creates a new task for asynq. Export tasks are never
// retried: a retry after a partial run would append the same rows twice.
func NewWeeklyExportTask(periodFrom *string, trigger string) (*asynq.Task, error) {
	payload := WeeklyExportPayload{
		PeriodFrom: periodFrom,
		Trigger:    trigger,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskWeeklyExport, payloadBytes, asynq.MaxRetry(0)), nil
}
