package fuellog

import (
	"fmt"
	"strings"
)

// Op is a comparison operator used by a Filter
type Op string

// Supported operators
const (
	OpEqual            Op = "equal"
	OpGreaterThanEqual Op = "greaterThanEqual"
	OpLessThan         Op = "lessThan"
)

// Filter restricts a query to records whose Field compares to Value with Op
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Equal matches records whose field equals value. A nil value matches unset fields.
func Equal(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// GreaterThanEqual matches records whose field is >= value
func GreaterThanEqual(field string, value any) Filter {
	return Filter{Field: field, Op: OpGreaterThanEqual, Value: value}
}

// LessThan matches records whose field is < value
func LessThan(field string, value any) Filter {
	return Filter{Field: field, Op: OpLessThan, Value: value}
}

// InYear returns the filters selecting records dated within the calendar year.
// Bounds are plain dates so that both "2024-12-31" and "2024-12-31T23:59:59Z" fall inside.
func InYear(year int) []Filter {
	return []Filter{
		GreaterThanEqual("date", fmt.Sprintf("%04d-01-01", year)),
		LessThan("date", fmt.Sprintf("%04d-01-01", year+1)),
	}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s(%s, %v)", f.Op, f.Field, f.Value)
}

// Match reports whether the record satisfies the filter
func (f Filter) Match(r *Record) bool {
	field, ok := fieldValue(r, f.Field)
	if !ok {
		return false
	}
	a := flatten(field)
	b := flatten(f.Value)

	switch f.Op {
	case OpEqual:
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		c, ok := compare(a, b)
		return ok && c == 0
	case OpGreaterThanEqual:
		c, ok := compare(a, b)
		return ok && c >= 0
	case OpLessThan:
		c, ok := compare(a, b)
		return ok && c < 0
	default:
		return false
	}
}

func matchAll(r *Record, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

func fieldValue(r *Record, field string) (any, bool) {
	switch field {
	case "$id":
		return r.ID, true
	case "carId":
		return r.CarID, true
	case "date":
		return r.Date, true
	case "stationName":
		return r.StationName, true
	case "currency":
		return r.Currency, true
	case "receiptFileId":
		return r.ReceiptFileID, true
	case "liters":
		return r.Liters, true
	case "pricePerLiter":
		return r.PricePerLiter, true
	case "priceTotal":
		return r.PriceTotal, true
	case "aiParsed":
		return r.AIParsed, true
	case "needsReview":
		return r.NeedsReview, true
	default:
		return nil, false
	}
}

// flatten unwraps pointers and numeric kinds so values from records and filters line up
func flatten(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *float64:
		if t == nil {
			return nil
		}
		return *t
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok || x != y {
			return 1, ok
		}
		return 0, true
	default:
		return 0, false
	}
}
