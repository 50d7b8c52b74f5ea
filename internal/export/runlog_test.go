package export_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"navexport/internal/dataset"
	"navexport/internal/export"
	"navexport/internal/models"
	"navexport/internal/storage"
)

type recordingHistory struct {
	entries []models.RunLogEntry
	err     error
}

func (h *recordingHistory) RecordEntries(ctx context.Context, entries []models.RunLogEntry) error {
	h.entries = append(h.entries, entries...)
	return h.err
}

var _ = Describe("Truncate", func() {
	It("leaves short strings alone", func() {
		Expect(export.Truncate("boom", 500)).To(Equal("boom"))
	})

	It("cuts by characters, not bytes", func() {
		s := strings.Repeat("é", 600)
		out := export.Truncate(s, export.MaxErrorLength)
		Expect([]rune(out)).To(HaveLen(500))
		Expect(strings.HasPrefix(s, out)).To(BeTrue())
	})
})

var _ = Describe("RunLogger", func() {
	var (
		store   *storage.MemoryStore
		history *recordingHistory
		window  models.QueryWindow
		ctx     context.Context
		at      time.Time
	)

	BeforeEach(func() {
		store = storage.NewMemoryStore()
		history = &recordingHistory{}
		window = models.PreviousWeek(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
		ctx = context.Background()
		at = time.Date(2024, 1, 15, 3, 0, 5, 0, time.UTC)
	})

	runLog := func(codes ...string) *export.RunLog {
		log := &export.RunLog{}
		for i, code := range codes {
			e := models.RunLogEntry{
				CompanyCode:  code,
				PeriodFrom:   window.FromString(),
				PeriodTo:     window.ToString(),
				Status:       models.RunStatusSuccess,
				InvoiceCount: i + 1,
				ProcessedAt:  at,
			}
			if i%2 == 1 {
				e.Status = models.RunStatusFailed
				e.InvoiceCount = 0
				e.Error = "page 2: 500 Internal Server Error"
				e.RequestSnapshot = "<QueryInvoiceDigestRequest/>"
			}
			log.Append(e)
		}
		return log
	}

	It("names the summary after the window", func() {
		Expect(export.SummaryFilename(window)).To(Equal("summary_2024-01-08_2024-01-14.xlsx"))
	})

	It("writes one row per entry to the summary folder", func() {
		doc, err := export.NewRunLogger(store, "summaries", history, nil).Persist(ctx, window, runLog("ACME", "BETA"))
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.ID).To(Equal("summaries/summary_2024-01-08_2024-01-14.xlsx"))

		stored := readStored(store, "summaries", "summary_2024-01-08_2024-01-14.xlsx")
		Expect(dataset.ColumnNames(stored.Columns)).To(Equal(dataset.ColumnNames(export.SummaryColumns)))
		Expect(columnValues(stored, "company_code")).To(Equal(strs("ACME", "BETA")))
		Expect(columnValues(stored, "status")).To(Equal(strs("SUCCESS", "FAILED")))
		Expect(columnValues(stored, "invoice_count")).To(Equal(strs("1", "0")))
		Expect(stored.Value(1, "error")).To(Equal("page 2: 500 Internal Server Error"))
		Expect(stored.Value(1, "request_snapshot")).To(Equal("<QueryInvoiceDigestRequest/>"))
		Expect(stored.Value(0, "processed_at")).To(Equal("2024-01-15T03:00:05Z"))

		Expect(history.entries).To(HaveLen(2))
	})

	It("appends when the window was already summarised", func() {
		logger := export.NewRunLogger(store, "summaries", nil, nil)
		_, err := logger.Persist(ctx, window, runLog("ACME"))
		Expect(err).NotTo(HaveOccurred())
		_, err = logger.Persist(ctx, window, runLog("ACME", "BETA"))
		Expect(err).NotTo(HaveOccurred())

		stored := readStored(store, "summaries", "summary_2024-01-08_2024-01-14.xlsx")
		Expect(columnValues(stored, "company_code")).To(Equal(strs("ACME", "ACME", "BETA")))
	})

	It("writes an empty summary for a run without companies", func() {
		_, err := export.NewRunLogger(store, "summaries", nil, nil).Persist(ctx, window, &export.RunLog{})
		Expect(err).NotTo(HaveOccurred())
		Expect(readStored(store, "summaries", "summary_2024-01-08_2024-01-14.xlsx").Len()).To(Equal(0))
	})

	It("only logs history failures", func() {
		history.err = errors.New("database is down")
		_, err := export.NewRunLogger(store, "summaries", history, nil).Persist(ctx, window, runLog("ACME"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("propagates storage failures", func() {
		failing := &failingStore{MemoryStore: store, folder: "summaries"}
		_, err := export.NewRunLogger(failing, "summaries", history, nil).Persist(ctx, window, runLog("ACME"))
		Expect(err).To(MatchError(ContainSubstring("persist run summary")))
		Expect(history.entries).To(BeEmpty())
	})
})

// failingStore refuses every lookup in one folder.
type failingStore struct {
	*storage.MemoryStore
	folder string
}

func (s *failingStore) Find(ctx context.Context, folder, name string) (*storage.Document, error) {
	if folder == s.folder {
		return nil, errors.New("storage unavailable")
	}
	return s.MemoryStore.Find(ctx, folder, name)
}
