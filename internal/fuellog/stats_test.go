package fuellog_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/fuel-tracker/internal/fuellog"
)

var _ = Describe("Aggregations", func() {
	var records []*fuellog.Record

	BeforeEach(func() {
		records = []*fuellog.Record{
			{Date: "2024-01-15", PriceTotal: ptr(64.00), Liters: ptr(40), PricePerLiter: ptr(1.60)},
			{Date: "2024-01-28T08:30:00.000Z", PriceTotal: ptr(36.00), Liters: ptr(20), PricePerLiter: ptr(1.80)},
			{Date: "2023-11-02", PriceTotal: ptr(50.00), Liters: nil, PricePerLiter: nil},
			{Date: "", CreatedAt: time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), PriceTotal: nil, Liters: ptr(0)},
		}
	})

	Describe("TotalSpent", func() {
		It("sums totals treating missing as zero", func() {
			Expect(fuellog.TotalSpent(records)).To(BeNumerically("~", 150.00, 1e-9))
		})

		It("is zero for no records", func() {
			Expect(fuellog.TotalSpent(nil)).To(BeZero())
		})
	})

	Describe("AvgLiters", func() {
		It("ignores missing and zero values", func() {
			Expect(fuellog.AvgLiters(records)).To(BeNumerically("~", 30, 1e-9))
		})

		It("is zero when nothing is positive", func() {
			Expect(fuellog.AvgLiters(records[2:])).To(BeZero())
		})
	})

	Describe("AvgPricePerLiter", func() {
		It("averages the positive values", func() {
			Expect(fuellog.AvgPricePerLiter(records)).To(BeNumerically("~", 1.70, 1e-9))
		})
	})

	Describe("GroupByMonth", func() {
		It("totals per month in ascending order", func() {
			Expect(fuellog.GroupByMonth(records)).To(Equal([]fuellog.MonthTotal{
				{Month: "2022-06", Total: 0},
				{Month: "2023-11", Total: 50},
				{Month: "2024-01", Total: 100},
			}))
		})
	})

	Describe("GroupByYear", func() {
		It("totals per year in ascending order", func() {
			Expect(fuellog.GroupByYear(records)).To(Equal([]fuellog.YearTotal{
				{Year: 2022, Total: 0},
				{Year: 2023, Total: 50},
				{Year: 2024, Total: 100},
			}))
		})
	})

	Describe("YearsPresent", func() {
		It("lists distinct years, falling back to the creation time", func() {
			Expect(fuellog.YearsPresent(records)).To(Equal([]int{2022, 2023, 2024}))
		})
	})
})
