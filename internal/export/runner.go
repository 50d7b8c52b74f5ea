package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"navexport/internal/dataset"
	"navexport/internal/metrics"
	"navexport/internal/models"
	"navexport/internal/pkg/nav"
	"navexport/internal/storage"
)

// Fetcher returns every invoice digest of a company for a window, or nothing.
type Fetcher interface {
	FetchAll(ctx context.Context, company models.Company, window models.QueryWindow) ([]nav.Record, error)
}

// RunResult is returned for every run that reached the summary, including
// runs where some companies failed.
type RunResult struct {
	Status    string `json:"status"`
	Companies int    `json:"companies"`
	Failed    int    `json:"failed"`
	Window    string `json:"window"`
	Summary   string `json:"summary"`
}

type Options struct {
	CompanyConfigFileID string
	SummaryFolder       string
}

type Runner struct {
	opts      Options
	store     storage.DocumentStore
	fetcher   Fetcher
	merger    *Merger
	runLogger *RunLogger
	validate  *validator.Validate
	metrics   *metrics.ExportMetrics
	logger    *zap.Logger
	now       func() time.Time
}

type RunnerOption func(*Runner)

func WithHistory(h HistoryRecorder) RunnerOption {
	return func(r *Runner) {
		r.runLogger.history = h
	}
}

func WithMetrics(m *metrics.ExportMetrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
		r.merger.logger = logger
		r.runLogger.logger = logger
		r.runLogger.merger.logger = logger
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(opts Options, store storage.DocumentStore, fetcher Fetcher, options ...RunnerOption) *Runner {
	r := &Runner{
		opts:      opts,
		store:     store,
		fetcher:   fetcher,
		merger:    NewMerger(store, nil),
		runLogger: NewRunLogger(store, opts.SummaryFolder, nil, nil),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Run exports the week before today.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	return r.RunWindow(ctx, models.PreviousWeek(r.now().UTC()))
}

// RunWindow processes every active company for window one after the other
// and stores the run summary. Configuration and summary failures abort the
// run; company failures are recorded and skipped.
func (r *Runner) RunWindow(ctx context.Context, window models.QueryWindow) (*RunResult, error) {
	started := r.now()
	logger := r.logger.With(
		zap.String("period_from", window.FromString()),
		zap.String("period_to", window.ToString()),
	)

	res, err := r.runWindow(ctx, window, logger)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailed
		logger.Error("export run failed", zap.Error(err))
	}
	r.metrics.ObserveRun(status, r.now().Sub(started).Seconds())

	return res, err
}

func (r *Runner) runWindow(ctx context.Context, window models.QueryWindow, logger *zap.Logger) (*RunResult, error) {
	companies, err := LoadCompanies(ctx, r.store, r.opts.CompanyConfigFileID)
	if err != nil {
		return nil, err
	}

	active := models.ActiveCompanies(companies)
	logger.Info("export run started",
		zap.Int("companies", len(companies)),
		zap.Int("active", len(active)),
	)

	log := &RunLog{}
	for _, company := range active {
		log.Append(r.ProcessCompany(ctx, company, window))
	}

	doc, err := r.runLogger.Persist(ctx, window, log)
	if err != nil {
		return nil, err
	}

	logger.Info("export run finished",
		zap.Int("companies", log.Len()),
		zap.Int("failed", log.Failed()),
	)

	return &RunResult{
		Status:    "ok",
		Companies: log.Len(),
		Failed:    log.Failed(),
		Window:    window.String(),
		Summary:   doc.ID,
	}, nil
}

// ProcessCompany fetches and merges one company and describes the outcome.
// It never fails; failures are reported in the returned entry.
func (r *Runner) ProcessCompany(ctx context.Context, company models.Company, window models.QueryWindow) models.RunLogEntry {
	logger := r.logger.With(
		zap.String("company_code", company.CompanyCode),
		zap.String("period_from", window.FromString()),
		zap.String("period_to", window.ToString()),
	)

	entry := models.RunLogEntry{
		CompanyCode: company.CompanyCode,
		PeriodFrom:  window.FromString(),
		PeriodTo:    window.ToString(),
	}

	count, err := r.exportCompany(ctx, company, window)
	entry.ProcessedAt = r.now().UTC().Truncate(time.Second)

	if err != nil {
		entry.Status = models.RunStatusFailed
		entry.Error = Truncate(err.Error(), MaxErrorLength)

		var fetchErr *nav.FetchError
		if errors.As(err, &fetchErr) {
			entry.RequestSnapshot = Truncate(string(fetchErr.Request), MaxSnapshotLength)
			entry.ResponseSnapshot = Truncate(string(fetchErr.Response), MaxSnapshotLength)
		}

		r.metrics.CompanyProcessed(metrics.StatusFailed)
		logger.Error("company export failed", zap.Error(err))
		return entry
	}

	entry.Status = models.RunStatusSuccess
	entry.InvoiceCount = count

	r.metrics.CompanyProcessed(metrics.StatusSuccess)
	r.metrics.InvoicesExported(company.CompanyCode, count)
	logger.Info("company exported", zap.Int("invoice_count", count))
	return entry
}

func (r *Runner) exportCompany(ctx context.Context, company models.Company, window models.QueryWindow) (int, error) {
	if err := r.validateCompany(company); err != nil {
		return 0, err
	}

	records, err := r.fetcher.FetchAll(ctx, company, window)
	if err != nil {
		return 0, err
	}

	rows := dataset.NewTable(dataset.InvoiceColumns)
	period := map[string]any{
		dataset.ColumnPeriodFrom: window.FromString(),
		dataset.ColumnPeriodTo:   window.ToString(),
	}
	for _, rec := range records {
		rows.AppendSource(rec, period)
	}

	if _, err := r.merger.Upsert(ctx, company.CompanyCode, company.TargetFolder, rows); err != nil {
		return 0, fmt.Errorf("merge dataset: %w", err)
	}
	return len(records), nil
}

func (r *Runner) validateCompany(company models.Company) error {
	err := r.validate.Struct(company)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid company configuration: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid company configuration: %s", strings.Join(fields, ", "))
}
