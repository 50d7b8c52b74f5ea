package dataset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"navexport/internal/dataset"
	"navexport/internal/testhelpers"
)

var _ = Describe("xlsx", func() {
	It("reads back what it writes", func() {
		t := dataset.NewTable(dataset.InvoiceColumns)
		t.AppendRow(map[string]any{
			"invoiceNumber":       "INV-1",
			"supplierTaxNumber":   "01234567",
			"invoiceIssueDate":    "2024-01-09",
			"invoiceNetAmount":    "1000.50",
			"invoiceVatAmountHUF": "-270.25",
			"period_from":         "2024-01-08",
			"period_to":           "2024-01-14",
		})
		t.AppendRow(map[string]any{"invoiceNumber": "INV-2"})

		data, err := dataset.WriteXLSX(t, "")
		Expect(err).NotTo(HaveOccurred())

		raw, err := dataset.ReadXLSX(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(dataset.ColumnNames(raw.Columns)).To(Equal(dataset.ColumnNames(dataset.InvoiceColumns)))
		Expect(raw.Len()).To(Equal(2))

		back := dataset.Project(raw, dataset.InvoiceColumns)
		Expect(back.Value(0, "invoiceNumber")).To(Equal("INV-1"))
		Expect(back.Value(0, "supplierTaxNumber")).To(Equal("01234567"))
		Expect(back.Value(0, "invoiceIssueDate")).To(Equal(day(2024, 1, 9)))
		Expect(back.Value(0, "period_to")).To(Equal(day(2024, 1, 14)))
		Expect(back.Value(0, "invoiceNetAmount").(decimal.Decimal).Equal(decimal.RequireFromString("1000.5"))).To(BeTrue())
		Expect(back.Value(0, "invoiceVatAmountHUF").(decimal.Decimal).Equal(decimal.RequireFromString("-270.25"))).To(BeTrue())
		Expect(back.Value(1, "invoiceNumber")).To(Equal("INV-2"))
		Expect(back.Value(1, "invoiceIssueDate")).To(BeNil())
	})

	It("writes a header only workbook for an empty table", func() {
		data, err := dataset.WriteXLSX(dataset.NewTable(dataset.InvoiceColumns), "invoices")
		Expect(err).NotTo(HaveOccurred())

		raw, err := dataset.ReadXLSX(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Len()).To(Equal(0))
		Expect(raw.Columns).To(HaveLen(len(dataset.InvoiceColumns)))
	})

	It("reads a named sheet as text", func() {
		data, err := testhelpers.CompanyWorkbook("companies", testhelpers.CompanyHeader,
			[]string{"ACME", "login", "pw", "12345678", "key", "https://nav.example", "folder", "TRUE"})
		Expect(err).NotTo(HaveOccurred())

		rows, err := dataset.ReadSheet(data, "companies")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0]).To(Equal(testhelpers.CompanyHeader))
		Expect(rows[1][0]).To(Equal("ACME"))
		Expect(rows[1][7]).To(Equal("TRUE"))

		_, err = dataset.ReadSheet(data, "missing")
		Expect(err).To(MatchError(ContainSubstring(`sheet "missing" not found`)))
	})

	It("rejects bytes that are not a workbook", func() {
		_, err := dataset.ReadXLSX([]byte("not a zip"))
		Expect(err).To(HaveOccurred())
	})
})
