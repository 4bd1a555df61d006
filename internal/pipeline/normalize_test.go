package pipeline

import (
	"encoding/json"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/fuel-tracker/internal/scanning"
)

func str(s string) *string {
	return &s
}

func num(f float64) *float64 {
	return &f
}

var _ = Describe("NormalizeNumber", func() {
	DescribeTable("readable values",
		func(in any, want float64) {
			got := NormalizeNumber(in)
			Expect(got).NotTo(BeNil())
			Expect(*got).To(Equal(want))
		},
		Entry("decimal comma", "1,679", 1.679),
		Entry("dot decimal", "1.679", 1.679),
		Entry("inner whitespace", " 40, 12 ", 40.12),
		Entry("unit suffix", "64,00 EUR", 64.0),
		Entry("json number", 40.0, 40.0),
		Entry("zero", 0.0, 0.0),
		Entry("integer", 3, 3.0),
		Entry("json.Number", json.Number("1.5"), 1.5),
		Entry("negative", "-2,5", -2.5),
	)

	DescribeTable("unreadable values",
		func(in any) {
			Expect(NormalizeNumber(in)).To(BeNil())
		},
		Entry("nil", nil),
		Entry("empty", ""),
		Entry("text", "abc"),
		Entry("bool", true),
		Entry("NaN", math.NaN()),
		Entry("infinity", math.Inf(1)),
		Entry("overflow", "1e999"),
	)
})

var _ = Describe("DerivePricePerLiter", func() {
	It("rounds total/liters to three decimals", func() {
		Expect(*DerivePricePerLiter(num(64.00), num(38.123))).To(Equal(1.679))
	})

	It("is nil without liters", func() {
		Expect(DerivePricePerLiter(num(64.00), nil)).To(BeNil())
	})

	It("is nil for zero liters", func() {
		Expect(DerivePricePerLiter(num(64.00), num(0))).To(BeNil())
	})

	It("is nil without a total", func() {
		Expect(DerivePricePerLiter(nil, num(40))).To(BeNil())
	})
})

var _ = Describe("NormalizeDate", func() {
	DescribeTable("conversions",
		func(in, want string) {
			Expect(NormalizeDate(in)).To(Equal(want))
		},
		Entry("ISO stays", "2024-01-15", "2024-01-15"),
		Entry("German long", "15.01.2024", "2024-01-15"),
		Entry("German short", "15.01.24", "2024-01-15"),
		Entry("unknown kept", "Jan 15", "Jan 15"),
	)
})

var _ = Describe("Normalize", func() {
	var (
		now    time.Time
		result *scanning.ExtractionResult
		fields Fields
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
		result = &scanning.ExtractionResult{
			StationName:      str("Aral"),
			DateISO:          str("2024-01-15"),
			Liters:           "40,0",
			PriceTotalEUR:    64.0,
			PricePerLiterEUR: nil,
			Currency:         str("EUR"),
		}
	})

	JustBeforeEach(func() {
		fields = Normalize(result, now)
	})

	It("parses the numbers", func() {
		Expect(*fields.Liters).To(Equal(40.0))
		Expect(*fields.PriceTotal).To(Equal(64.0))
	})

	It("derives the price per liter when the model did not read it", func() {
		Expect(*fields.PricePerLiter).To(Equal(1.6))
	})

	When("the model read the price per liter", func() {
		BeforeEach(func() {
			result.PricePerLiterEUR = "1,659"
		})

		It("prefers the extracted value", func() {
			Expect(*fields.PricePerLiter).To(Equal(1.659))
		})
	})

	When("station and currency are missing", func() {
		BeforeEach(func() {
			result.StationName = nil
			result.Currency = str("  ")
		})

		It("applies the default policies", func() {
			Expect(fields.StationName).To(Equal(DefaultStationName))
			Expect(fields.Currency).To(Equal(DefaultCurrency))
		})
	})

	When("the date is missing", func() {
		BeforeEach(func() {
			result.DateISO = str("")
		})

		It("falls back to the processing time", func() {
			Expect(fields.Date).To(Equal("2024-03-01T12:30:00.000Z"))
		})

		It("flags the fallback", func() {
			Expect(fields.DateDefaulted).To(BeTrue())
		})
	})

	When("nothing was readable", func() {
		BeforeEach(func() {
			result = &scanning.ExtractionResult{}
		})

		It("does not invent numbers", func() {
			Expect(fields.Liters).To(BeNil())
			Expect(fields.PriceTotal).To(BeNil())
			Expect(fields.PricePerLiter).To(BeNil())
		})
	})
})
