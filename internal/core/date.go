package core

import (
	"math"
	"strings"
	"time"
)

const (
	// serialEpochOffset is the number of days between the spreadsheet epoch
	// (1899-12-30) and the Unix epoch.
	serialEpochOffset = 25569
	secondsPerDay     = 86400
	// maxSerial corresponds to the last day of year 9999.
	maxSerial = 2958465
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	"2006-1-2",
	"2.1.2006",
	"1/2/2006",
}

// CoerceDate converts a spreadsheet serial number or a calendar string into a
// UTC time. Zero, empty and unparseable values report false.
func CoerceDate(v Cell) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		return parseDateString(x)
	case nil, bool:
		return time.Time{}, false
	}
	serial, ok := CellFloat(v)
	if !ok || serial == 0 || math.Abs(serial) > maxSerial {
		return time.Time{}, false
	}
	ms := math.Round((serial - serialEpochOffset) * secondsPerDay * 1000)
	return time.UnixMilli(int64(ms)).UTC(), true
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// YearOf returns the calendar year of a date-coercible cell.
func YearOf(v Cell) (int, bool) {
	t, ok := CoerceDate(v)
	if !ok {
		return 0, false
	}
	return t.Year(), true
}

// MonthIndexOf returns the 0-based month of a date-coercible cell.
func MonthIndexOf(v Cell) (int, bool) {
	t, ok := CoerceDate(v)
	if !ok {
		return 0, false
	}
	return int(t.Month()) - 1, true
}

// FormatDate renders a date-coercible cell as dd.mm.yyyy, or "-" when absent.
func FormatDate(v Cell) string {
	t, ok := CoerceDate(v)
	if !ok {
		return "-"
	}
	return t.Format("02.01.2006")
}

// MonthNames are the Turkish month labels used by every monthly series.
var MonthNames = [12]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}
