package aggregate

import (
	"time"

	"egitim/internal/core"
	"egitim/internal/headcount"
)

// Input is what an analytical view is computed from: records already passed
// through the analytical filter for Year.
type Input struct {
	Records   []core.TrainingRecord
	Year      int
	Now       time.Time
	Headcount headcount.Entry
}

// MonthPoint is one month of the overview chart.
type MonthPoint struct {
	Month     string  `json:"month"`
	Hours     float64 `json:"hours"`
	PerPerson float64 `json:"perPerson"`
	Headcount int     `json:"headcount"`
}

// Overview is the landing dashboard.
type Overview struct {
	Year             int          `json:"year"`
	MonthsToShow     int          `json:"monthsToShow"`
	TotalHours       float64      `json:"totalHours"`
	DistributedHours float64      `json:"distributedHours"`
	TotalSessions    int          `json:"totalSessions"`
	TotalEmployees   int          `json:"totalEmployees"`
	AvgHeadcount     float64      `json:"avgHeadcount"`
	AvgPerPerson     float64      `json:"avgPerPerson"`
	Months           []MonthPoint `json:"months"`
	Categories       []Entry      `json:"categories"`
}

// BuildOverview computes totals and the blended monthly chart. Per-person
// figures use the mean headcount of the shown months.
func BuildOverview(in Input) Overview {
	spread := SpreadDistributed(in.Records, in.Year, in.Now)
	perPerson := PerPersonMonthly(spread.Hours, in.Headcount)

	var direct float64
	for _, r := range in.Records {
		if !r.IsDistributed() {
			direct += r.DurationHours
		}
	}
	total := direct + spread.TotalDistributed
	avgHC := in.Headcount.AverageOver(spread.MonthsToShow)

	o := Overview{
		Year:             in.Year,
		MonthsToShow:     spread.MonthsToShow,
		TotalHours:       RoundTotal(total),
		DistributedHours: RoundTotal(spread.TotalDistributed),
		TotalSessions:    countNonEmpty(in.Records, sessionID),
		TotalEmployees:   CountUnique(in.Records, employeeID),
		AvgHeadcount:     RoundPerPerson(avgHC),
		AvgPerPerson:     Ratio(total, avgHC),
		Months:           make([]MonthPoint, 0, spread.MonthsToShow),
	}
	for i := 0; i < spread.MonthsToShow; i++ {
		o.Months = append(o.Months, MonthPoint{
			Month:     core.MonthNames[i],
			Hours:     RoundTotal(spread.Hours[i]),
			PerPerson: perPerson[i],
			Headcount: in.Headcount.Total(i),
		})
	}
	o.Categories = byKeySorted(in.Records, func(r core.TrainingRecord) string { return keyOr(r.Category, core.Unspecified) })
	return o
}

// MonthlyRow is one month of session activity.
type MonthlyRow struct {
	Month                  string  `json:"month"`
	Sessions               int     `json:"sessions"`
	Participants           int     `json:"participants"`
	Hours                  float64 `json:"hours"`
	AvgHoursPerParticipant float64 `json:"avgHoursPerParticipant"`
}

// MonthlyView is per-month session frequency for a year.
type MonthlyView struct {
	Year                int          `json:"year"`
	MonthsToShow        int          `json:"monthsToShow"`
	Months              []MonthlyRow `json:"months"`
	TotalSessions       int          `json:"totalSessions"`
	TotalParticipants   int          `json:"totalParticipants"`
	TotalHours          float64      `json:"totalHours"`
	AvgSessionsPerMonth float64      `json:"avgSessionsPerMonth"`
	PeakMonth           string       `json:"peakMonth,omitempty"`
}

// BuildMonthly buckets records by start month. Sessions count rows and
// participants count distinct employees.
func BuildMonthly(in Input) MonthlyView {
	var (
		sessions [12]int
		hours    [12]float64
		people   [12]map[string]struct{}
	)
	for i := range people {
		people[i] = make(map[string]struct{})
	}
	for _, r := range in.Records {
		m, ok := core.MonthIndexOf(r.StartDate)
		if !ok {
			continue
		}
		sessions[m]++
		hours[m] += r.DurationHours
		people[m][r.EmployeeID] = struct{}{}
	}

	v := MonthlyView{
		Year:         in.Year,
		MonthsToShow: MonthsToShow(in.Year, in.Now),
	}
	v.Months = make([]MonthlyRow, 0, v.MonthsToShow)
	peak := -1
	var totalHours float64
	for i := 0; i < v.MonthsToShow; i++ {
		v.Months = append(v.Months, MonthlyRow{
			Month:                  core.MonthNames[i],
			Sessions:               sessions[i],
			Participants:           len(people[i]),
			Hours:                  RoundTotal(hours[i]),
			AvgHoursPerParticipant: Ratio(hours[i], float64(len(people[i]))),
		})
		v.TotalSessions += sessions[i]
		totalHours += hours[i]
		if sessions[i] > 0 && (peak < 0 || sessions[i] > sessions[peak]) {
			peak = i
		}
	}
	v.TotalHours = RoundTotal(totalHours)
	v.TotalParticipants = CountUnique(in.Records, employeeID)
	v.AvgSessionsPerMonth = Ratio(float64(v.TotalSessions), float64(v.MonthsToShow))
	if peak >= 0 {
		v.PeakMonth = core.MonthNames[peak]
	}
	return v
}

// Breakdown splits hours by the categorical dimensions.
type Breakdown struct {
	TotalHours        float64 `json:"totalHours"`
	ByCategory        []Entry `json:"byCategory"`
	ByGender          []Entry `json:"byGender"`
	ByDepartment      []Entry `json:"byDepartment"`
	ByPersonnel       []Entry `json:"byPersonnel"`
	GenderAverages    []Entry `json:"genderAverages"`
	PersonnelAverages []Entry `json:"personnelAverages"`
}

// TopDepartments is how many departments ranked views keep.
const TopDepartments = 10

// BuildBreakdown computes the hour distributions and per-person averages.
func BuildBreakdown(in Input) Breakdown {
	category := func(r core.TrainingRecord) string { return keyOr(r.Category, core.Unspecified) }
	gender := func(r core.TrainingRecord) string { return keyOr(r.Gender, core.Unspecified) }
	dept := func(r core.TrainingRecord) string { return keyOr(r.Department, core.Unspecified) }
	personnel := func(r core.TrainingRecord) string { return keyOr(r.PersonnelCategory, core.Unspecified) }

	var total float64
	for _, r := range in.Records {
		total += r.DurationHours
	}
	return Breakdown{
		TotalHours:        RoundTotal(total),
		ByCategory:        byKeySorted(in.Records, category),
		ByGender:          byKeySorted(in.Records, gender),
		ByDepartment:      TopN(byKeySorted(in.Records, dept), TopDepartments, EntryValue),
		ByPersonnel:       byKeySorted(in.Records, personnel),
		GenderAverages:    averagesByKey(in.Records, gender),
		PersonnelAverages: averagesByKey(in.Records, personnel),
	}
}

// byKeySorted sums hours by key, rounds to whole hours and ranks descending.
func byKeySorted(records []core.TrainingRecord, key func(core.TrainingRecord) string) []Entry {
	sums := SumByKey(records, key, Hours)
	SortDesc(sums, EntryValue)
	return RoundEntries(sums)
}

// averagesByKey is hours per distinct employee within each group.
func averagesByKey(records []core.TrainingRecord, key func(core.TrainingRecord) string) []Entry {
	sums := SumByKey(records, key, Hours)
	people := CountUniqueByKey(records, key, employeeID)
	out := make([]Entry, len(sums))
	for i, s := range sums {
		// both reducers see groups in the same first-seen order
		out[i] = Entry{Name: s.Name, Value: AveragePerPerson(s.Value, people[i].Count)}
	}
	SortDesc(out, EntryValue)
	return out
}

func countNonEmpty(records []core.TrainingRecord, fn func(core.TrainingRecord) string) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v := fn(r); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
