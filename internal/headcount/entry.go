// Package headcount keeps the monthly staff counts per-person averages are
// computed against.
package headcount

import (
	"encoding/json"
	"errors"
	"math"
)

// Months is the length of every headcount series.
const Months = 12

const (
	MinYear = 2000
	MaxYear = 2100
	// MaxCount bounds a single monthly headcount.
	MaxCount = 1_000_000
)

var (
	ErrInvalidCounts  = errors.New("headcount arrays must hold 12 values between 0 and 1000000")
	ErrInvalidYear    = errors.New("year must be a number")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrYearExists     = errors.New("year already exists")
	ErrYearNotFound   = errors.New("year not found")
	ErrInvalidImport  = errors.New("invalid headcount document")
)

// Entry holds one year of monthly male and female headcounts.
type Entry struct {
	Men   [Months]int `json:"men"`
	Women [Months]int `json:"women"`
}

// Total returns men plus women for a 0-based month.
func (e Entry) Total(month int) int {
	if month < 0 || month >= Months {
		return 0
	}
	return e.Men[month] + e.Women[month]
}

// MonthlyAverage returns the yearly mean of men, women and the combined total.
func (e Entry) MonthlyAverage() (men, women, total float64) {
	var m, w int
	for i := 0; i < Months; i++ {
		m += e.Men[i]
		w += e.Women[i]
	}
	return float64(m) / Months, float64(w) / Months, float64(m+w) / Months
}

// AverageOver returns the mean combined headcount of the first n months.
func (e Entry) AverageOver(n int) float64 {
	if n <= 0 {
		return 0
	}
	if n > Months {
		n = Months
	}
	sum := 0
	for i := 0; i < n; i++ {
		sum += e.Total(i)
	}
	return float64(sum) / float64(n)
}

// FromSlices builds an entry from caller-supplied arrays.
func FromSlices(men, women []int) (Entry, error) {
	if len(men) != Months || len(women) != Months {
		return Entry{}, ErrInvalidCounts
	}
	var e Entry
	for i := 0; i < Months; i++ {
		if !validCount(men[i]) || !validCount(women[i]) {
			return Entry{}, ErrInvalidCounts
		}
		e.Men[i] = men[i]
		e.Women[i] = women[i]
	}
	return e, nil
}

// rawEntry is the tolerant shape used when reading stored or imported data.
type rawEntry struct {
	Men   json.RawMessage `json:"men"`
	Women json.RawMessage `json:"women"`
}

// sanitizeSeries decodes a stored monthly series. Anything other than an
// array of exactly 12 numbers within 0..MaxCount becomes 12 zeros.
func sanitizeSeries(raw json.RawMessage) [Months]int {
	var out [Months]int
	var values []any
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil || len(values) != Months {
		return out
	}
	for i, v := range values {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || f < 0 || f > MaxCount {
			return [Months]int{}
		}
		out[i] = int(math.Round(f))
	}
	return out
}

func validCount(n int) bool {
	return n >= 0 && n <= MaxCount
}

// decodeEntry reads one stored entry; malformed parts degrade to zeros.
func decodeEntry(raw json.RawMessage) Entry {
	var re rawEntry
	if err := json.Unmarshal(raw, &re); err != nil {
		return Entry{}
	}
	return Entry{Men: sanitizeSeries(re.Men), Women: sanitizeSeries(re.Women)}
}

// DecodeSeries reads a stored JSON series, tolerating malformed input.
func DecodeSeries(data []byte) [Months]int {
	return sanitizeSeries(data)
}
