package fuellog

import (
	"fmt"
	"sort"
	"time"
)

// MonthTotal is the spend for one calendar month
type MonthTotal struct {
	Month string  `json:"ym"` // YYYY-MM
	Total float64 `json:"total"`
}

// YearTotal is the spend for one calendar year
type YearTotal struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

// TotalSpent sums priceTotal, treating missing totals as zero
func TotalSpent(records []*Record) float64 {
	var sum float64
	for _, r := range records {
		sum += value(r.PriceTotal)
	}
	return sum
}

// AvgLiters averages the positive liter values
func AvgLiters(records []*Record) float64 {
	return positiveMean(records, func(r *Record) *float64 { return r.Liters })
}

// AvgPricePerLiter averages the positive price-per-liter values
func AvgPricePerLiter(records []*Record) float64 {
	return positiveMean(records, func(r *Record) *float64 { return r.PricePerLiter })
}

// GroupByMonth totals spend per UTC month, oldest first
func GroupByMonth(records []*Record) []MonthTotal {
	totals := make(map[string]float64)
	for _, r := range records {
		t := recordTime(r)
		key := fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
		totals[key] += value(r.PriceTotal)
	}

	out := make([]MonthTotal, 0, len(totals))
	for k, v := range totals {
		out = append(out, MonthTotal{Month: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// GroupByYear totals spend per UTC year, oldest first
func GroupByYear(records []*Record) []YearTotal {
	totals := make(map[int]float64)
	for _, r := range records {
		totals[recordTime(r).Year()] += value(r.PriceTotal)
	}

	out := make([]YearTotal, 0, len(totals))
	for k, v := range totals {
		out = append(out, YearTotal{Year: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// YearsPresent lists the distinct years records fall in, ascending
func YearsPresent(records []*Record) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, r := range records {
		y := recordTime(r).Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// recordTime is the record's date in UTC, or its creation time when the date is unreadable
func recordTime(r *Record) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, r.Date); err == nil {
			return t.UTC()
		}
	}
	return r.CreatedAt.UTC()
}

func positiveMean(records []*Record, pick func(*Record) *float64) float64 {
	var sum float64
	var n int
	for _, r := range records {
		if v := value(pick(r)); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
