package dataset_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"navexport/internal/dataset"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Coerce", func() {
	DescribeTable("dates",
		func(in any, want time.Time, ok bool) {
			got := dataset.Coerce(dataset.KindDate, in)
			if !ok {
				Expect(got).To(BeNil())
				return
			}
			Expect(got).To(Equal(want))
		},
		Entry("iso date", "2024-01-08", day(2024, 1, 8), true),
		Entry("timestamp", "2024-01-08T10:15:30.123Z", day(2024, 1, 8), true),
		Entry("dotted", "2024.01.08.", day(2024, 1, 8), true),
		Entry("excel serial text", "45299", day(2024, 1, 8), true),
		Entry("excel serial float", 45299.0, day(2024, 1, 8), true),
		Entry("time value", time.Date(2024, 1, 8, 13, 0, 0, 0, time.UTC), day(2024, 1, 8), true),
		Entry("garbage", "next tuesday", time.Time{}, false),
		Entry("empty", "", time.Time{}, false),
		Entry("nil", nil, time.Time{}, false),
	)

	DescribeTable("numbers",
		func(in any, want string, ok bool) {
			got := dataset.Coerce(dataset.KindNumber, in)
			if !ok {
				Expect(got).To(BeNil())
				return
			}
			Expect(got).To(BeAssignableToTypeOf(decimal.Decimal{}))
			Expect(got.(decimal.Decimal).Equal(decimal.RequireFromString(want))).To(BeTrue())
		},
		Entry("decimal text", "1000.50", "1000.5", true),
		Entry("negative", "-27000", "-27000", true),
		Entry("padded", " 12 ", "12", true),
		Entry("float", 97695.0, "97695", true),
		Entry("int", 3, "3", true),
		Entry("not a number", "12,5 Ft", "", false),
		Entry("empty", "", "", false),
	)

	It("keeps text as is and drops empty text", func() {
		Expect(dataset.Coerce(dataset.KindText, "HUF")).To(Equal("HUF"))
		Expect(dataset.Coerce(dataset.KindText, "")).To(BeNil())
		Expect(dataset.Coerce(dataset.KindText, day(2024, 1, 8))).To(Equal("2024-01-08"))
		Expect(dataset.Coerce(dataset.KindText, decimal.RequireFromString("1.50"))).To(Equal("1.5"))
	})
})
