package pipeline

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/fuel-tracker/internal/scanning"
)

// Default policies applied when the model could not read a field.
const (
	// DefaultStationName is recorded when no station name was readable
	DefaultStationName = "Unknown"
	// DefaultCurrency is recorded when no currency was readable
	DefaultCurrency = "EUR"
	// fallbackDateLayout formats the processing time used when no date was
	// readable. Records dated this way are flagged NeedsReview.
	fallbackDateLayout = "2006-01-02T15:04:05.000Z07:00"
)

// receiptDateLayouts are the formats German receipts print, converted to ISO
var receiptDateLayouts = []string{
	"02.01.2006",
	"02.01.06",
	"2.1.2006",
	"2006/01/02",
}

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Fields are the normalized values of one receipt
type Fields struct {
	Date          string
	DateDefaulted bool
	StationName   string
	Liters        *float64
	PriceTotal    *float64
	PricePerLiter *float64
	Currency      string
}

// NormalizeNumber turns a model value into a float. Strings have whitespace
// stripped and their first decimal comma replaced with a dot, and the leading
// numeric part is parsed. Anything unreadable or non-finite is nil.
func NormalizeNumber(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		return parseNumber(string(t))
	case string:
		return parseNumber(t)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseNumber(s string) *float64 {
	s = strings.Join(strings.Fields(s), "")
	s = strings.Replace(s, ",", ".", 1)
	m := leadingFloat.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// DerivePricePerLiter computes total/liters rounded to 3 decimals, or nil when
// either is missing or liters is zero
func DerivePricePerLiter(total, liters *float64) *float64 {
	if total == nil || liters == nil || *liters == 0 {
		return nil
	}
	v := math.Round(*total / *liters * 1000) / 1000
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeDate returns the receipt date as ISO 8601. Dates the model left in
// receipt notation are converted, anything else is kept as the model wrote it.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range receiptDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// Normalize applies number parsing, price derivation and the default policies
func Normalize(r *scanning.ExtractionResult, now time.Time) Fields {
	f := Fields{
		Liters:     NormalizeNumber(r.Liters),
		PriceTotal: NormalizeNumber(r.PriceTotalEUR),
	}

	f.PricePerLiter = NormalizeNumber(r.PricePerLiterEUR)
	if f.PricePerLiter == nil {
		f.PricePerLiter = DerivePricePerLiter(f.PriceTotal, f.Liters)
	}

	f.StationName = orDefault(r.StationName, DefaultStationName)
	f.Currency = orDefault(r.Currency, DefaultCurrency)

	if date := orDefault(r.DateISO, ""); date != "" {
		f.Date = NormalizeDate(date)
	} else {
		f.Date = now.UTC().Format(fallbackDateLayout)
		f.DateDefaulted = true
	}
	return f
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	if v := strings.TrimSpace(*s); v != "" {
		return v
	}
	return def
}
