package export_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"navexport/internal/dataset"
	"navexport/internal/export"
	"navexport/internal/storage"
)

// racingStore lets another writer update a document right after it is downloaded.
type racingStore struct {
	*storage.MemoryStore
}

func (s *racingStore) Download(ctx context.Context, id string) ([]byte, error) {
	data, err := s.MemoryStore.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.MemoryStore.Update(ctx, id, data, ""); err != nil {
		return nil, err
	}
	return data, nil
}

var _ = Describe("Merger", func() {
	var (
		store  *storage.MemoryStore
		merger *export.Merger
		ctx    context.Context
	)

	BeforeEach(func() {
		store = storage.NewMemoryStore()
		merger = export.NewMerger(store, nil)
		ctx = context.Background()
	})

	It("names datasets after the company", func() {
		Expect(export.DatasetFilename("ACME")).To(Equal("ACME_invoices.xlsx"))
	})

	It("creates a dataset holding exactly the new rows", func() {
		res, err := merger.Upsert(ctx, "ACME", "datasets/acme", invoiceTable("A-1", "A-2", "A-3"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(BeTrue())
		Expect(res.Total()).To(Equal(3))
		Expect(res.Document.ID).To(Equal("datasets/acme/ACME_invoices.xlsx"))

		stored := readStored(store, "datasets/acme", "ACME_invoices.xlsx")
		Expect(dataset.ColumnNames(stored.Columns)).To(Equal(dataset.ColumnNames(dataset.InvoiceColumns)))
		Expect(columnValues(stored, "invoiceNumber")).To(Equal(strs("A-1", "A-2", "A-3")))
		Expect(stored.ColumnIndex("unknownFutureField")).To(Equal(-1))
	})

	It("appends 4 rows after 10 existing ones without touching them", func() {
		_, err := merger.Upsert(ctx, "ACME", "datasets/acme", invoiceTable(numbered("OLD", 10)...))
		Expect(err).NotTo(HaveOccurred())
		before := dataset.Project(readStored(store, "datasets/acme", "ACME_invoices.xlsx"), dataset.InvoiceColumns)

		res, err := merger.Upsert(ctx, "ACME", "datasets/acme", invoiceTable(numbered("NEW", 4)...))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(BeFalse())
		Expect(res.Existing).To(Equal(10))
		Expect(res.Appended).To(Equal(4))

		after := dataset.Project(readStored(store, "datasets/acme", "ACME_invoices.xlsx"), dataset.InvoiceColumns)
		Expect(after.Len()).To(Equal(14))
		Expect(after.Rows[:10]).To(Equal(before.Rows))
		Expect(columnValues(after, "invoiceNumber")[10:]).To(Equal(strs("NEW-01", "NEW-02", "NEW-03", "NEW-04")))
	})

	It("stores typed dates and numbers", func() {
		_, err := merger.Upsert(ctx, "ACME", "datasets/acme", invoiceTable("A-1"))
		Expect(err).NotTo(HaveOccurred())

		stored := dataset.Project(readStored(store, "datasets/acme", "ACME_invoices.xlsx"), dataset.InvoiceColumns)
		issue := stored.Value(0, "invoiceIssueDate")
		Expect(issue).NotTo(BeNil())
		Expect(stored.Value(0, dataset.ColumnPeriodFrom)).NotTo(BeNil())
		Expect(stored.Value(0, "invoiceNetAmount").(decimal.Decimal).Equal(decimal.RequireFromString("1000.5"))).To(BeTrue())
		Expect(stored.Value(0, "paymentDate")).To(BeNil())
	})

	It("rewrites an existing dataset onto the canonical columns when nothing new arrived", func() {
		legacy := dataset.NewTable([]dataset.Column{dataset.Text("legacyField"), dataset.Text("invoiceNumber")})
		legacy.AppendRow(map[string]any{"legacyField": "x", "invoiceNumber": "OLD-1"})
		legacy.AppendRow(map[string]any{"legacyField": "y", "invoiceNumber": "OLD-2"})
		doc, err := store.Create(ctx, "datasets/acme", "ACME_invoices.xlsx", mustWrite(legacy))
		Expect(err).NotTo(HaveOccurred())

		res, err := merger.Upsert(ctx, "ACME", "datasets/acme", invoiceTable())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(BeFalse())
		Expect(res.Existing).To(Equal(2))
		Expect(res.Appended).To(Equal(0))
		Expect(res.Document.Version).NotTo(Equal(doc.Version))

		stored := readStored(store, "datasets/acme", "ACME_invoices.xlsx")
		Expect(dataset.ColumnNames(stored.Columns)).To(Equal(dataset.ColumnNames(dataset.InvoiceColumns)))
		Expect(stored.ColumnIndex("legacyField")).To(Equal(-1))
		Expect(columnValues(stored, "invoiceNumber")).To(Equal(strs("OLD-1", "OLD-2")))
	})

	It("fails instead of overwriting a concurrent update", func() {
		racing := &racingStore{MemoryStore: store}
		_, err := store.Create(ctx, "datasets/acme", "ACME_invoices.xlsx", mustWrite(invoiceTable("A-1")))
		Expect(err).NotTo(HaveOccurred())

		_, err = export.NewMerger(racing, nil).Upsert(ctx, "ACME", "datasets/acme", invoiceTable("A-2"))
		Expect(errors.Is(err, storage.ErrPreconditionFailed)).To(BeTrue())

		stored := readStored(store, "datasets/acme", "ACME_invoices.xlsx")
		Expect(stored.Len()).To(Equal(1))
	})

	It("fails on a stored file that is not a workbook", func() {
		_, err := store.Create(ctx, "datasets/acme", "ACME_invoices.xlsx", []byte("garbage"))
		Expect(err).NotTo(HaveOccurred())

		_, err = merger.Upsert(ctx, "ACME", "datasets/acme", invoiceTable("A-1"))
		Expect(err).To(MatchError(ContainSubstring("read ACME_invoices.xlsx")))
	})
})

func mustWrite(t *dataset.Table) []byte {
	data, err := dataset.WriteXLSX(t, "")
	Expect(err).NotTo(HaveOccurred())
	return data
}
