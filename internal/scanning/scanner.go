package scanning

import "context"

// ExtractionResult contains the fields read from a fuel receipt. Every field is
// nil when the model could not read it. Numeric fields hold whatever JSON value
// the model returned (number or string such as "1,679") and are normalized by
// the caller.
type ExtractionResult struct {
	StationName      *string `json:"station_name"`
	DateISO          *string `json:"date_iso"`
	Liters           any     `json:"liters"`
	PriceTotalEUR    any     `json:"price_total_eur"`
	PricePerLiterEUR any     `json:"price_per_liter_eur"`
	Currency         *string `json:"currency"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts the fuel-up fields
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ExtractionResult, error)
	// Close closes the scanner and releases resources
	Close() error
}
