package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"navexport/internal/dataset"
	"navexport/internal/models"
	"navexport/internal/storage"
)

const (
	MaxErrorLength    = 500
	MaxSnapshotLength = 30000
)

// SummaryColumns is the layout of the per-run summary workbook.
var SummaryColumns = []dataset.Column{
	dataset.Text("company_code"),
	dataset.Text("period_from"),
	dataset.Text("period_to"),
	dataset.Text("status"),
	dataset.Number("invoice_count"),
	dataset.Text("error"),
	dataset.Text("request_snapshot"),
	dataset.Text("response_snapshot"),
	dataset.Text("processed_at"),
}

// SummaryFilename names the summary workbook of a run over window.
func SummaryFilename(window models.QueryWindow) string {
	return fmt.Sprintf("summary_%s_%s.xlsx", window.FromString(), window.ToString())
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// RunLog collects one entry per processed company, in processing order.
type RunLog struct {
	entries []models.RunLogEntry
}

func (l *RunLog) Append(e models.RunLogEntry) {
	l.entries = append(l.entries, e)
}

func (l *RunLog) Len() int {
	return len(l.entries)
}

func (l *RunLog) Failed() int {
	n := 0
	for _, e := range l.entries {
		if e.Status == models.RunStatusFailed {
			n++
		}
	}
	return n
}

func (l *RunLog) Entries() []models.RunLogEntry {
	out := make([]models.RunLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Table renders the entries in SummaryColumns layout.
func (l *RunLog) Table() *dataset.Table {
	t := dataset.NewTable(SummaryColumns)
	for _, e := range l.entries {
		t.AppendRow(map[string]any{
			"company_code":      e.CompanyCode,
			"period_from":       e.PeriodFrom,
			"period_to":         e.PeriodTo,
			"status":            string(e.Status),
			"invoice_count":     e.InvoiceCount,
			"error":             e.Error,
			"request_snapshot":  e.RequestSnapshot,
			"response_snapshot": e.ResponseSnapshot,
			"processed_at":      e.ProcessedAt.UTC().Format(time.RFC3339),
		})
	}
	return t
}

// HistoryRecorder keeps run log entries beyond the summary workbook.
type HistoryRecorder interface {
	RecordEntries(ctx context.Context, entries []models.RunLogEntry) error
}

// RunLogger writes the summary workbook of a run.
type RunLogger struct {
	merger  *Merger
	folder  string
	history HistoryRecorder
	logger  *zap.Logger
}

func NewRunLogger(store storage.DocumentStore, folder string, history HistoryRecorder, logger *zap.Logger) *RunLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunLogger{
		merger:  NewMerger(store, logger),
		folder:  folder,
		history: history,
		logger:  logger,
	}
}

// Persist stores the log as summary_{from}_{to}.xlsx in the summary folder.
// A repeated run for the same window appends to the existing summary.
// Storage failures are returned; history failures are only logged.
func (r *RunLogger) Persist(ctx context.Context, window models.QueryWindow, log *RunLog) (*storage.Document, error) {
	name := SummaryFilename(window)

	res, err := r.merger.Append(ctx, r.folder, name, SummaryColumns, log.Table())
	if err != nil {
		return nil, fmt.Errorf("persist run summary: %w", err)
	}

	r.logger.Info("run summary stored",
		zap.String("document", res.Document.ID),
		zap.Int("entries", log.Len()),
		zap.Int("failed", log.Failed()),
	)

	if r.history != nil {
		if err := r.history.RecordEntries(ctx, log.Entries()); err != nil {
			r.logger.Error("failed to record run history", zap.Error(err))
		}
	}

	return res.Document, nil
}
