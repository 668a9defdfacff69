package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"egitim/internal/core"
)

// unknownName labels certificate and programme rows without a course name.
const unknownName = "Bilinmeyen"

// CertificateMetrics are the headline numbers of the certificate view.
type CertificateMetrics struct {
	UniqueEmployees   int    `json:"uniqueEmployees"`
	TotalCertificates int    `json:"totalCertificates"`
	CertificateTypes  int    `json:"certificateTypes"`
	MostCommon        string `json:"mostCommon"`
	MostCommonCount   int    `json:"mostCommonCount"`
}

// CertificateMonth counts certificates per name within one month.
type CertificateMonth struct {
	Month  string  `json:"month"`
	Index  int     `json:"index"`
	Counts []Count `json:"counts"`
}

// CertificateStat is one certificate kind.
type CertificateStat struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Employees int    `json:"employees"`
}

// CertificatesView describes licence and certificate records.
type CertificatesView struct {
	Metrics   CertificateMetrics `json:"metrics"`
	Months    []CertificateMonth `json:"months"`
	Types     []string           `json:"types"`
	Breakdown []CertificateStat  `json:"breakdown"`
}

// BuildCertificates expects records already restricted to certificates.
func BuildCertificates(records []core.TrainingRecord) CertificatesView {
	name := func(r core.TrainingRecord) string { return keyOr(r.CourseName, unknownName) }

	counts := SumByKey(records, name, func(core.TrainingRecord) float64 { return 1 })
	holders := CountUniqueByKey(records, name, employeeID)
	breakdown := make([]CertificateStat, len(counts))
	for i := range counts {
		breakdown[i] = CertificateStat{Name: counts[i].Name, Count: int(counts[i].Value), Employees: holders[i].Count}
	}
	SortDesc(breakdown, func(s CertificateStat) float64 { return float64(s.Count) })

	v := CertificatesView{
		Metrics: CertificateMetrics{
			UniqueEmployees:   CountUnique(records, employeeID),
			TotalCertificates: len(records),
			CertificateTypes:  len(counts),
			MostCommon:        "N/A",
		},
		Types:     make([]string, 0, len(counts)),
		Breakdown: breakdown,
	}
	if len(breakdown) > 0 {
		v.Metrics.MostCommon = breakdown[0].Name
		v.Metrics.MostCommonCount = breakdown[0].Count
	}

	var byMonth [12][]core.TrainingRecord
	for _, r := range records {
		if m, ok := core.MonthIndexOf(r.StartDate); ok {
			byMonth[m] = append(byMonth[m], r)
		}
	}
	seenType := make(map[string]struct{})
	for m, rs := range byMonth {
		if len(rs) == 0 {
			continue
		}
		sums := SumByKey(rs, name, func(core.TrainingRecord) float64 { return 1 })
		cm := CertificateMonth{Month: core.MonthNames[m], Index: m, Counts: make([]Count, len(sums))}
		for i, s := range sums {
			cm.Counts[i] = Count{Name: s.Name, Count: int(s.Value)}
		}
		v.Months = append(v.Months, cm)
	}
	for _, r := range records {
		if _, ok := core.MonthIndexOf(r.StartDate); !ok {
			continue
		}
		n := name(r)
		if _, ok := seenType[n]; !ok {
			seenType[n] = struct{}{}
			v.Types = append(v.Types, n)
		}
	}
	return v
}

// Programme names carry theory and practice parts as suffixes; both parts
// belong to one programme.
var programSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\(\s*TEOR[İI]K\s*\)\s*`),
	regexp.MustCompile(`(?i)\s*\(\s*UYGULAMA\s*\)\s*`),
	regexp.MustCompile(`(?i)\s*-?\s*TEOR[İI]K\s*`),
	regexp.MustCompile(`(?i)\s*-?\s*UYGULAMA\s*`),
}

// ProgramName strips theory and practice markers from a course name.
func ProgramName(course string) string {
	name := keyOr(strings.TrimSpace(course), "Bilinmeyen Program")
	for _, re := range programSuffixes {
		name = re.ReplaceAllString(name, " ")
	}
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "Bilinmeyen Program"
	}
	return name
}

// ProgramStat is one distributed programme.
type ProgramStat struct {
	Name      string  `json:"name"`
	Employees int     `json:"employees"`
	Trainings int     `json:"trainings"`
	Hours     float64 `json:"hours"`
}

// TimelinePoint counts programme rows starting and ending in a month.
type TimelinePoint struct {
	Month   string `json:"month"`
	Label   string `json:"label"`
	Started int    `json:"started"`
	Ended   int    `json:"ended"`
}

// ProgramMetrics are the headline numbers of the programme view.
type ProgramMetrics struct {
	UniqueEmployees   int     `json:"uniqueEmployees"`
	TotalTrainings    int     `json:"totalTrainings"`
	TotalHours        float64 `json:"totalHours"`
	AvgHoursPerPerson float64 `json:"avgHoursPerPerson"`
}

// ProgramsView describes distributed (long-running) programmes.
type ProgramsView struct {
	Metrics  ProgramMetrics  `json:"metrics"`
	Programs []ProgramStat   `json:"programs"`
	Timeline []TimelinePoint `json:"timeline"`
}

// TimelineMonths is how many of the latest months the timeline keeps.
const TimelineMonths = 12

// BuildPrograms expects records already restricted to distributed programmes.
func BuildPrograms(records []core.TrainingRecord) ProgramsView {
	var total float64
	for _, r := range records {
		total += r.DurationHours
	}
	employees := CountUnique(records, employeeID)

	key := func(r core.TrainingRecord) string { return ProgramName(r.CourseName) }
	hours := SumByKey(records, key, Hours)
	people := CountUniqueByKey(records, key, employeeID)
	rows := SumByKey(records, key, func(core.TrainingRecord) float64 { return 1 })
	programs := make([]ProgramStat, len(hours))
	for i := range hours {
		programs[i] = ProgramStat{
			Name:      hours[i].Name,
			Employees: people[i].Count,
			Trainings: int(rows[i].Value),
			Hours:     RoundTotal(hours[i].Value),
		}
	}
	SortDesc(programs, func(p ProgramStat) float64 { return float64(p.Employees) })

	return ProgramsView{
		Metrics: ProgramMetrics{
			UniqueEmployees:   employees,
			TotalTrainings:    len(records),
			TotalHours:        RoundTotal(total),
			AvgHoursPerPerson: AveragePerPerson(total, employees),
		},
		Programs: programs,
		Timeline: buildTimeline(records),
	}
}

func buildTimeline(records []core.TrainingRecord) []TimelinePoint {
	points := make(map[string]*TimelinePoint)
	bump := func(v core.Cell, started bool) {
		t, ok := core.CoerceDate(v)
		if !ok {
			return
		}
		k := fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
		p, ok := points[k]
		if !ok {
			p = &TimelinePoint{Month: k, Label: fmt.Sprintf("%s %d", core.MonthNames[t.Month()-1], t.Year())}
			points[k] = p
		}
		if started {
			p.Started++
		} else {
			p.Ended++
		}
	}
	for _, r := range records {
		bump(r.StartDate, true)
		bump(r.EndDate, false)
	}

	out := make([]TimelinePoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	if len(out) > TimelineMonths {
		out = out[len(out)-TimelineMonths:]
	}
	return out
}
