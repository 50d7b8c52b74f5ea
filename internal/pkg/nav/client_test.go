package nav_test

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"navexport/internal/pkg/nav"
	"navexport/internal/testhelpers"
)

const navBaseURL = "https://api-test.onlineszamla.nav.gov.hu/invoiceService/v3"

func receivedQuery(exp *testhelpers.Expectation) parsedQuery {
	GinkgoHelper()
	Expect(exp.Received).NotTo(BeNil())
	var q parsedQuery
	Expect(xml.Unmarshal(exp.Received.Body, &q)).To(Succeed())
	return q
}

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) PageRequested(status string) {
	o.counts[status]++
}

func invoiceNumbers(rows []nav.Record) []string {
	var out []string
	for _, r := range rows {
		v, _ := r.Get("invoiceNumber")
		out = append(out, v)
	}
	return out
}

var _ = Describe("Client", func() {
	var (
		client *nav.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		testhelpers.Activate()
		ctx = context.Background()
		client = nav.New(
			nav.WithTimeout(5*time.Second),
			nav.WithClock(func() time.Time { return time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC) }),
		)
		client.UseDefaultClient()
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	Describe("FetchAll", func() {
		It("walks every available page in order", func() {
			p1 := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 3, "A-1", "A-2"))
			p2 := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(2, 3, "A-3"))
			p3 := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(3, 3, "A-4"))

			rows, err := client.FetchAll(ctx, testCompany(), testWindow())
			Expect(err).NotTo(HaveOccurred())
			Expect(testhelpers.IsDone()).To(BeTrue())
			Expect(invoiceNumbers(rows)).To(Equal([]string{"A-1", "A-2", "A-3", "A-4"}))

			q1, q2, q3 := receivedQuery(p1), receivedQuery(p2), receivedQuery(p3)
			Expect([]int{q1.Page, q2.Page, q3.Page}).To(Equal([]int{1, 2, 3}))
			Expect(q1.Header.RequestID).NotTo(Equal(q2.Header.RequestID))
			Expect(q2.Header.RequestID).NotTo(Equal(q3.Header.RequestID))
			Expect(q1.Header.Timestamp).To(Equal("2024-01-15T03:00:00Z"))
			Expect(q1.DateFrom).To(Equal("2024-01-08"))
			Expect(q1.DateTo).To(Equal("2024-01-14"))
			Expect(q1.InvoiceDirection).To(Equal("OUTBOUND"))

			Expect(p1.Received.Header.Get("Content-Type")).To(Equal("application/xml"))
			Expect(p1.Received.Header.Get("Accept")).To(Equal("application/xml"))
		})

		It("stops after one request when the counters are absent", func() {
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(
				`<QueryInvoiceDigestResponse><invoiceDigestResult><invoiceDigest><invoiceNumber>A-1</invoiceNumber></invoiceDigest></invoiceDigestResult></QueryInvoiceDigestResponse>`)
			extra := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(2, 2, "A-2"))

			rows, err := client.FetchAll(ctx, testCompany(), testWindow())
			Expect(err).NotTo(HaveOccurred())
			Expect(invoiceNumbers(rows)).To(Equal([]string{"A-1"}))
			Expect(extra.Received).To(BeNil())
			Expect(testhelpers.Pending()).To(Equal(1))
		})

		It("returns an empty result for a window without invoices", func() {
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 1))

			rows, err := client.FetchAll(ctx, testCompany(), testWindow())
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("does not loop when the server keeps answering page 1", func() {
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 2, "A-1"))
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 2, "A-2"))

			rows, err := client.FetchAll(ctx, testCompany(), testWindow())
			Expect(err).NotTo(HaveOccurred())
			Expect(invoiceNumbers(rows)).To(Equal([]string{"A-1", "A-2"}))
			Expect(testhelpers.IsDone()).To(BeTrue())
		})

		It("discards earlier pages when a later page fails", func() {
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 2, "A-1"))
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(500).BodyString("internal error")

			rows, err := client.FetchAll(ctx, testCompany(), testWindow())
			Expect(rows).To(BeNil())

			var ferr *nav.FetchError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			Expect(ferr.Page).To(Equal(2))
			Expect(ferr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(ferr.Message).To(HavePrefix("500 Internal Server Error for url: " + navBaseURL + "/queryInvoiceDigest"))
			Expect(string(ferr.Response)).To(Equal("internal error"))

			var sent parsedQuery
			Expect(xml.Unmarshal(ferr.Request, &sent)).To(Succeed())
			Expect(sent.Page).To(Equal(2))
		})

		It("wraps an unparseable success body", func() {
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString("<html><body>maintenance")

			_, err := client.FetchAll(ctx, testCompany(), testWindow())

			var ferr *nav.FetchError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			var perr *nav.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(string(ferr.Response)).To(Equal("<html><body>maintenance"))
		})

		It("reports transport failures as fetch errors", func() {
			// no expectation registered, so the mock transport refuses the call
			_, err := client.FetchAll(ctx, testCompany(), testWindow())

			var ferr *nav.FetchError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			Expect(ferr.Page).To(Equal(1))
			Expect(ferr.Message).To(ContainSubstring("request failed"))
			Expect(ferr.Request).NotTo(BeEmpty())
		})
	})

	Describe("QueryInvoiceDigest", func() {
		It("summarizes a NAV error document", func() {
			body, err := testhelpers.LoadFixture("general_error_response.xml")
			Expect(err).NotTo(HaveOccurred())
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(400).Body(body)

			_, err = client.QueryInvoiceDigest(ctx, testCompany(), 1, testWindow())

			var ferr *nav.FetchError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			Expect(ferr.Message).To(ContainSubstring("400 Bad Request"))
			Expect(ferr.Message).To(ContainSubstring("ERROR: INVALID_REQUEST_SIGNATURE: Helytelen kérés aláírás érték!"))
		})

		It("summarizes an HTML gateway page by its title", func() {
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(502).BodyString(
				"<html><head><title>502 Bad Gateway</title></head><body></body></html>")

			_, err := client.QueryInvoiceDigest(ctx, testCompany(), 1, testWindow())
			Expect(err).To(MatchError(ContainSubstring("(502 Bad Gateway)")))
		})

		It("tolerates a trailing slash on the base URL", func() {
			exp := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 1, "A-1"))

			company := testCompany()
			company.BaseURL = navBaseURL + "/"
			page, err := client.QueryInvoiceDigest(ctx, company, 1, testWindow())
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Records).To(HaveLen(1))
			Expect(exp.Received).NotTo(BeNil())
		})

		It("fails on missing counters in strict mode", func() {
			strict := nav.New(nav.WithStrictPagination(true), nav.WithDirection(nav.DirectionInbound))
			strict.UseDefaultClient()

			exp := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(`<r><invoiceDigest/></r>`)

			_, err := strict.QueryInvoiceDigest(ctx, testCompany(), 1, testWindow())
			Expect(err).To(MatchError(nav.ErrIncompletePagination))
			Expect(receivedQuery(exp).InvoiceDirection).To(Equal("INBOUND"))
		})

		It("reports every page outcome to the observer", func() {
			obs := &countingObserver{counts: map[string]int{}}
			observed := nav.New(nav.WithPageObserver(obs))
			observed.UseDefaultClient()

			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 2, "A-1"))
			testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(503)

			_, err := observed.FetchAll(ctx, testCompany(), testWindow())
			Expect(err).To(HaveOccurred())
			Expect(obs.counts).To(Equal(map[string]int{"success": 1, "failed": 1}))
		})

		It("uses the injected request id generator", func() {
			fixed := nav.New(nav.WithRequestIDGenerator(func() string { return "fixedrequestid000000000000000a" }))
			fixed.UseDefaultClient()

			exp := testhelpers.New(navBaseURL).Post("/queryInvoiceDigest").Reply(200).BodyString(testhelpers.DigestPageXML(1, 1))

			_, err := fixed.QueryInvoiceDigest(ctx, testCompany(), 1, testWindow())
			Expect(err).NotTo(HaveOccurred())
			Expect(receivedQuery(exp).Header.RequestID).To(Equal("fixedrequestid000000000000000a"))
		})
	})
})
