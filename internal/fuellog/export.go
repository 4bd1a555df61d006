package fuellog

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Fuel Logs"

var exportHeaders = []string{
	"Date",
	"Station",
	"Liters",
	"Price/Liter",
	"Total",
	"Currency",
	"Car",
	"Receipt File",
	"Needs Review",
}

// WriteXLSX writes the records as a single-sheet workbook
func WriteXLSX(w io.Writer, records []*Record) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than leaving an empty "Sheet1" around
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for i, r := range records {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}

		write(1, r.Date)
		write(2, r.StationName)
		write(3, cellNumber(r.Liters))
		write(4, cellNumber(r.PricePerLiter))
		write(5, cellNumber(r.PriceTotal))
		write(6, r.Currency)
		write(7, r.CarID)
		write(8, r.ReceiptFileID)
		write(9, r.NeedsReview)
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 26) // date
	_ = f.SetColWidth(exportSheet, "B", "B", 28) // station
	_ = f.SetColWidth(exportSheet, "C", "F", 12)
	_ = f.SetColWidth(exportSheet, "G", "H", 24)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func cellNumber(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
