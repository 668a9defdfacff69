package aggregate

import (
	"time"

	"egitim/internal/core"
	"egitim/internal/headcount"
)

// MonthsToShow is 12 for any year but the current one, where only the
// months elapsed so far (including the current month) count.
func MonthsToShow(year int, now time.Time) int {
	if year == now.Year() {
		return int(now.Month())
	}
	return 12
}

// MonthlyHours is a year of hours with distributed-programme hours amortized
// across the shown months.
type MonthlyHours struct {
	Hours            [12]float64 `json:"hours"`
	Direct           [12]float64 `json:"direct"`
	MonthsToShow     int         `json:"monthsToShow"`
	TotalDistributed float64     `json:"totalDistributed"`
	PerMonthShare    float64     `json:"perMonthShare"`
}

// SpreadDistributed buckets records of one year into their start month,
// except distributed-programme records whose hours are summed and spread
// evenly over the first MonthsToShow months.
func SpreadDistributed(records []core.TrainingRecord, year int, now time.Time) MonthlyHours {
	var m MonthlyHours
	m.MonthsToShow = MonthsToShow(year, now)
	for _, r := range records {
		month, ok := core.MonthIndexOf(r.StartDate)
		if !ok {
			continue
		}
		if r.IsDistributed() {
			m.TotalDistributed += r.DurationHours
			continue
		}
		m.Direct[month] += r.DurationHours
	}
	if m.MonthsToShow > 0 {
		m.PerMonthShare = m.TotalDistributed / float64(m.MonthsToShow)
	}
	m.Hours = m.Direct
	for i := 0; i < m.MonthsToShow && i < 12; i++ {
		m.Hours[i] += m.PerMonthShare
	}
	return m
}

// PerPersonMonthly divides each month's hours by that month's headcount.
// Months without headcount resolve to 0.
func PerPersonMonthly(hours [12]float64, hc headcount.Entry) [12]float64 {
	var out [12]float64
	for i := range hours {
		out[i] = Ratio(hours[i], float64(hc.Total(i)))
	}
	return out
}
