package aggregate

import (
	"sort"

	"egitim/internal/core"
	"egitim/internal/locale"
)

// categoryOrder is the business order of the training-type selector. Types
// not listed follow, collated.
var categoryOrder = map[string]int{
	"MESLEKİ":                1,
	core.CategoryOHS:         2,
	"ÇEVRE":                  3,
	core.CategoryDistributed: 4,
	"KİŞİSEL GELİŞİM":        5,
	core.CategoryTechnical:   6,
	"TALİMAT":                7,
}

// Options lists the selector values the dataset supports.
type Options struct {
	Years               []int    `json:"years"`
	MostRecentYear      int      `json:"mostRecentYear"`
	TrainingTypes       []string `json:"trainingTypes"`
	Departments         []string `json:"departments"`
	PersonnelCategories []string `json:"personnelCategories"`
	Companies           []string `json:"companies"`
	Genders             []string `json:"genders"`
}

// BuildOptions derives the selectors from the whole dataset. Years come
// from non-certificate start dates only, since licences date back decades.
func BuildOptions(records []core.TrainingRecord) Options {
	years := make(map[int]struct{})
	types := make(map[string]struct{})
	depts := make(map[string]struct{})
	personnel := make(map[string]struct{})
	companies := make(map[string]struct{})
	genders := make(map[string]struct{})
	for _, r := range records {
		add(depts, r.Department)
		add(personnel, r.PersonnelCategory)
		add(companies, r.Company)
		add(genders, r.Gender)
		if r.IsCertificate() {
			continue
		}
		add(types, r.Category)
		if y, ok := core.YearOf(r.StartDate); ok {
			years[y] = struct{}{}
		}
	}

	o := Options{
		Years:               make([]int, 0, len(years)),
		TrainingTypes:       keys(types),
		Departments:         keys(depts),
		PersonnelCategories: keys(personnel),
		Companies:           keys(companies),
		Genders:             keys(genders),
	}
	for y := range years {
		o.Years = append(o.Years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(o.Years)))
	if len(o.Years) > 0 {
		o.MostRecentYear = o.Years[0]
	}

	cmp := locale.Compare(locale.Turkish)
	sort.SliceStable(o.TrainingTypes, func(i, j int) bool {
		a, b := o.TrainingTypes[i], o.TrainingTypes[j]
		oa, ob := rank(a), rank(b)
		if oa != ob {
			return oa < ob
		}
		return cmp(a, b) < 0
	})
	locale.Sort(locale.Turkish, o.Departments)
	locale.Sort(locale.Turkish, o.PersonnelCategories)
	locale.Sort(locale.Turkish, o.Companies)
	locale.Sort(locale.Turkish, o.Genders)
	return o
}

func rank(category string) int {
	if r, ok := categoryOrder[category]; ok {
		return r
	}
	return 999
}

func add(m map[string]struct{}, v string) {
	if v != "" {
		m[v] = struct{}{}
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
