package aggregate

import (
	"errors"
	"fmt"

	"egitim/internal/core"
)

// DepartmentSort selects the ranking field of the department view.
type DepartmentSort string

const (
	SortByHours     DepartmentSort = "hours"
	SortByEmployees DepartmentSort = "employees"
	SortBySessions  DepartmentSort = "sessions"
)

var ErrInvalidSort = errors.New("invalid sort field")

// ParseDepartmentSort validates a sort field; empty means hours.
func ParseDepartmentSort(s string) (DepartmentSort, error) {
	switch DepartmentSort(s) {
	case "":
		return SortByHours, nil
	case SortByHours, SortByEmployees, SortBySessions:
		return DepartmentSort(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

// DepartmentStat is one department's training activity.
type DepartmentStat struct {
	Department          string  `json:"department"`
	Hours               float64 `json:"hours"`
	Sessions            int     `json:"sessions"`
	Employees           int     `json:"employees"`
	TrainingTypes       []Entry `json:"trainingTypes"`
	AvgHoursPerEmployee float64 `json:"avgHoursPerEmployee"`
	AvgHoursPerSession  float64 `json:"avgHoursPerSession"`
}

// DepartmentMetrics summarises every department, not only the ranked ones.
type DepartmentMetrics struct {
	TotalDepartments int     `json:"totalDepartments"`
	TotalHours       float64 `json:"totalHours"`
	TotalEmployees   int     `json:"totalEmployees"`
	AvgHoursPerDept  float64 `json:"avgHoursPerDepartment"`
}

// DepartmentsView ranks departments.
type DepartmentsView struct {
	SortBy      DepartmentSort    `json:"sortBy"`
	Departments []DepartmentStat  `json:"departments"`
	Metrics     DepartmentMetrics `json:"metrics"`
}

// BuildDepartments aggregates by department, ranks by sortBy and keeps the
// top TopDepartments.
func BuildDepartments(in Input, sortBy DepartmentSort) DepartmentsView {
	type acc struct {
		stat   DepartmentStat
		people map[string]struct{}
		types  []core.TrainingRecord
	}
	index := make(map[string]int)
	accs := make([]*acc, 0)
	for _, r := range in.Records {
		name := keyOr(r.Department, core.Unspecified)
		i, ok := index[name]
		if !ok {
			i = len(accs)
			index[name] = i
			accs = append(accs, &acc{stat: DepartmentStat{Department: name}, people: make(map[string]struct{})})
		}
		a := accs[i]
		a.stat.Hours += r.DurationHours
		a.stat.Sessions++
		a.people[r.EmployeeID] = struct{}{}
		a.types = append(a.types, r)
	}

	stats := make([]DepartmentStat, len(accs))
	var totalHours float64
	for i, a := range accs {
		s := a.stat
		s.Employees = len(a.people)
		s.AvgHoursPerEmployee = AveragePerPerson(s.Hours, s.Employees)
		s.AvgHoursPerSession = Ratio(s.Hours, float64(s.Sessions))
		s.TrainingTypes = RoundEntries(SumByKey(a.types, func(r core.TrainingRecord) string { return keyOr(r.Category, core.Other) }, Hours))
		totalHours += s.Hours
		stats[i] = s
	}

	score := func(s DepartmentStat) float64 { return s.Hours }
	switch sortBy {
	case SortByEmployees:
		score = func(s DepartmentStat) float64 { return float64(s.Employees) }
	case SortBySessions:
		score = func(s DepartmentStat) float64 { return float64(s.Sessions) }
	default:
		sortBy = SortByHours
	}
	top := TopN(stats, TopDepartments, score)
	for i := range top {
		top[i].Hours = RoundTotal(top[i].Hours)
	}

	return DepartmentsView{
		SortBy:      sortBy,
		Departments: top,
		Metrics: DepartmentMetrics{
			TotalDepartments: len(stats),
			TotalHours:       RoundTotal(totalHours),
			TotalEmployees:   CountUnique(in.Records, employeeID),
			AvgHoursPerDept:  Ratio(totalHours, float64(len(stats))),
		},
	}
}

// TrainingStat is one course's aggregate.
type TrainingStat struct {
	Name                   string  `json:"name"`
	Code                   string  `json:"code"`
	Category               string  `json:"category"`
	TotalHours             float64 `json:"totalHours"`
	Sessions               int     `json:"sessions"`
	Participants           int     `json:"participants"`
	AvgHoursPerParticipant float64 `json:"avgHoursPerParticipant"`
}

// TrainingMetrics summarises every course, not only the listed ones.
type TrainingMetrics struct {
	TotalTrainings    int     `json:"totalTrainings"`
	TotalHours        float64 `json:"totalHours"`
	TotalSessions     int     `json:"totalSessions"`
	TotalParticipants int     `json:"totalParticipants"`
}

// TopTrainingsView ranks courses by hours.
type TopTrainingsView struct {
	Limit     int             `json:"limit"`
	Trainings []TrainingStat  `json:"trainings"`
	Metrics   TrainingMetrics `json:"metrics"`
}

// DefaultTopTrainings is the list length when none is requested.
const DefaultTopTrainings = 20

// BuildTopTrainings groups by course name and returns the limit courses with
// the most hours. Code and category come from the first row of each course.
func BuildTopTrainings(in Input, limit int) TopTrainingsView {
	index := make(map[string]int)
	stats := make([]TrainingStat, 0)
	people := make([]map[string]struct{}, 0)
	for _, r := range in.Records {
		name := keyOr(r.CourseName, core.Unspecified)
		i, ok := index[name]
		if !ok {
			i = len(stats)
			index[name] = i
			stats = append(stats, TrainingStat{
				Name:     name,
				Code:     keyOr(r.CourseCode, "-"),
				Category: keyOr(r.Category, "-"),
			})
			people = append(people, make(map[string]struct{}))
		}
		stats[i].TotalHours += r.DurationHours
		stats[i].Sessions++
		people[i][r.EmployeeID] = struct{}{}
	}

	m := TrainingMetrics{TotalTrainings: len(stats)}
	var totalHours float64
	for i := range stats {
		stats[i].Participants = len(people[i])
		stats[i].AvgHoursPerParticipant = AveragePerPerson(stats[i].TotalHours, stats[i].Participants)
		totalHours += stats[i].TotalHours
		m.TotalSessions += stats[i].Sessions
	}
	m.TotalHours = RoundTotal(totalHours)
	m.TotalParticipants = CountUnique(in.Records, employeeID)

	top := TopN(stats, limit, func(s TrainingStat) float64 { return s.TotalHours })
	for i := range top {
		top[i].TotalHours = RoundTotal(top[i].TotalHours)
	}
	return TopTrainingsView{Limit: limit, Trainings: top, Metrics: m}
}
