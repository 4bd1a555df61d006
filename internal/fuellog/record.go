package fuellog

import (
	"fmt"
	"time"
)

// RoleUsers is the role every authenticated dashboard user belongs to
const RoleUsers = "users"

// Record represents one fuel-up extracted from a receipt
type Record struct {
	ID            string    `json:"$id"`
	CreatedAt     time.Time `json:"$createdAt"`
	Permissions   []string  `json:"$permissions,omitempty"`
	CarID         string    `json:"carId"`
	Date          string    `json:"date"` // ISO 8601 date or datetime
	Liters        *float64  `json:"liters"`
	PricePerLiter *float64  `json:"pricePerLiter"`
	PriceTotal    *float64  `json:"priceTotal"`
	StationName   string    `json:"stationName"`
	Currency      string    `json:"currency"`
	ReceiptFileID string    `json:"receiptFileId"` // storage file the record was read from
	AIParsed      bool      `json:"aiParsed"`
	NeedsReview   bool      `json:"needsReview,omitempty"` // date was not readable and defaulted to processing time
}

// QueryResult is a page of records plus the number of records matching the query
type QueryResult struct {
	Documents []*Record `json:"documents"`
	Total     int       `json:"total"`
}

// Read grants read access to role
func Read(role string) string {
	return fmt.Sprintf("read(%q)", role)
}

// Update grants update access to role
func Update(role string) string {
	return fmt.Sprintf("update(%q)", role)
}
