package core

import (
	"testing"
	"time"
)

func TestCanonicalCategory(t *testing.T) {
	cases := map[string]string{
		"isg":               CategoryOHS,
		"ISG":               CategoryOHS,
		"İSG":               CategoryOHS,
		"teknik":            CategoryTechnical,
		"TEKNIK":            CategoryTechnical,
		"TEKNİK":            CategoryTechnical,
		"mesleki":           "MESLEKI",
		"MESLEKİ":           "MESLEKİ",
		"EHLİYET-SERTİFİKA": CategoryCertificate,
		"":                  "",
	}
	for in, want := range cases {
		if got := CanonicalCategory(in); got != want {
			t.Fatalf("CanonicalCategory(%q)=%q want %q", in, got, want)
		}
	}
}

func TestCanonicalCategoryIdempotent(t *testing.T) {
	inputs := []string{"isg", "İSG", "ISG", "teknik", "TEKNİK", "Çevre", "yetiştirme", "x y z", "ı", "i"}
	for _, in := range inputs {
		once := CanonicalCategory(in)
		if twice := CanonicalCategory(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestRecordValid(t *testing.T) {
	if (TrainingRecord{EmployeeID: "1", Company: "Nemport"}).Valid() != true {
		t.Fatal("expected valid record")
	}
	if (TrainingRecord{EmployeeID: "", Company: "Nemport"}).Valid() {
		t.Fatal("missing employee id must be invalid")
	}
	if (TrainingRecord{EmployeeID: "1"}).Valid() {
		t.Fatal("missing company must be invalid")
	}
}

func TestCellString(t *testing.T) {
	cases := []struct {
		in   Cell
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{1001.0, "1001"},
		{12.5, "12.5"},
		{42, "42"},
		{int64(7), "7"},
	}
	for _, tc := range cases {
		if got := CellString(tc.in); got != tc.want {
			t.Fatalf("CellString(%v)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		in   Cell
		want float64
	}{
		{4.0, 4},
		{"2.5", 2.5},
		{"3 saat", 3},
		{" 8 ", 8},
		{"saat", 0},
		{"", 0},
		{nil, 0},
		{-3.0, 0},
		{true, 0},
	}
	for _, tc := range cases {
		if got := Duration(tc.in); got != tc.want {
			t.Fatalf("Duration(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestCoerceDate(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jan5 := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   Cell
		want time.Time
		ok   bool
	}{
		{"serial", 45292.0, jan1, true},
		{"serial int", 45292, jan1, true},
		{"serial with time", 45292.5, jan1.Add(12 * time.Hour), true},
		{"iso", "2024-01-01", jan1, true},
		{"iso datetime", "2024-01-01T00:00:00Z", jan1, true},
		{"turkish", "01.01.2024", jan1, true},
		{"slash", "2024/01/01", jan1, true},
		{"us unpadded", "1/5/2024", jan5, true},
		{"turkish unpadded", "5.1.2024", jan5, true},
		{"iso unpadded", "2024-1-5", jan5, true},
		{"zero serial", 0.0, time.Time{}, false},
		{"nil", nil, time.Time{}, false},
		{"garbage", "not a date", time.Time{}, false},
		{"empty", "  ", time.Time{}, false},
		{"bool", true, time.Time{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CoerceDate(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestCoerceDateIdempotent(t *testing.T) {
	a, _ := CoerceDate(45300.0)
	b, _ := CoerceDate(45300.0)
	if !a.Equal(b) {
		t.Fatalf("repeated coercion differs: %v vs %v", a, b)
	}
}

func TestYearAndMonthOf(t *testing.T) {
	y, ok := YearOf(45292.0)
	if !ok || y != 2024 {
		t.Fatalf("YearOf=%d,%v", y, ok)
	}
	m, ok := MonthIndexOf("2024-06-15")
	if !ok || m != 5 {
		t.Fatalf("MonthIndexOf=%d,%v", m, ok)
	}
	if _, ok := YearOf(nil); ok {
		t.Fatal("expected no year for nil")
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(45292.0); got != "01.01.2024" {
		t.Fatalf("FormatDate=%q", got)
	}
	if got := FormatDate(nil); got != "-" {
		t.Fatalf("FormatDate(nil)=%q", got)
	}
}
