package fuellog_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/fuel-tracker/internal/fuellog"
)

var _ = Describe("WriteXLSX", func() {
	var (
		buf  *bytes.Buffer
		rows [][]string
		err  error
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		records := []*fuellog.Record{
			{Date: "2024-01-15", StationName: "Aral", Liters: ptr(40), PricePerLiter: ptr(1.6), PriceTotal: ptr(64), Currency: "EUR", CarID: "car-1", ReceiptFileID: "file-1"},
			{Date: "2024-02-01", StationName: "Unknown", Currency: "EUR", CarID: "car-1", NeedsReview: true},
		}
		err = fuellog.WriteXLSX(buf, records)

		f, openErr := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
		Expect(openErr).NotTo(HaveOccurred())
		defer f.Close()
		rows, openErr = f.GetRows(fuellog.ExportSheet)
		Expect(openErr).NotTo(HaveOccurred())
	})

	It("should not return an error", func() {
		Expect(err).NotTo(HaveOccurred())
	})

	It("should write a header and one row per record", func() {
		Expect(rows).To(HaveLen(3))
		Expect(rows[0]).To(Equal(fuellog.ExportHeaders))
	})

	It("should write the record values", func() {
		Expect(rows[1][0]).To(Equal("2024-01-15"))
		Expect(rows[1][1]).To(Equal("Aral"))
		Expect(rows[1][4]).To(Equal("64"))
	})

	It("should leave missing numbers blank", func() {
		Expect(rows[2][2]).To(BeEmpty())
		Expect(rows[2][8]).To(Equal("TRUE"))
	})
})
