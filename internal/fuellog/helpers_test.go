package fuellog

import "time"

// SetClock replaces the clock used to stamp $createdAt
func SetClock(db *BoltDB, now func() time.Time) {
	db.now = now
}

var (
	ExportSheet   = exportSheet
	ExportHeaders = exportHeaders
)
