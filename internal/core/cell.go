package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// CellString renders a cell as text. Integral numbers drop their fraction so
// identifiers read as "1001" rather than "1001.0".
func CellString(v Cell) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return CellString(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// CellFloat reads a cell as a number. Strings are parsed by their leading
// numeric prefix, so "3 saat" reads as 3. Anything else reports false.
func CellFloat(v Cell) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(x))
		if m == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Duration reads a duration cell in hours, defaulting to 0 for anything
// unparseable or negative.
func Duration(v Cell) float64 {
	f, ok := CellFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// CellAt returns row[i], or nil when the row is too short.
func CellAt(row []Cell, i int) Cell {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}
