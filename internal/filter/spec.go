package filter

import (
	"sort"
	"strconv"
	"strings"

	"egitim/internal/core"
)

// Set is an immutable string set. The zero value is empty.
type Set struct {
	m map[string]struct{}
}

// NewSet builds a set from values, ignoring empty strings.
func NewSet(values ...string) Set {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		m[v] = struct{}{}
	}
	return Set{m: m}
}

func (s Set) Has(v string) bool {
	_, ok := s.m[v]
	return ok
}

func (s Set) Len() int { return len(s.m) }

// Values returns the members in byte order.
func (s Set) Values() []string {
	out := make([]string, 0, len(s.m))
	for v := range s.m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Spec holds the predicates of an analytical view. Build it with NewSpec.
type Spec struct {
	Year              int
	Company           string
	Gender            string
	PersonnelCategory string
	TrainingTypes     Set
	Departments       Set
}

// NewSpec returns a spec for year with every other dimension unrestricted.
// Empty selectors are normalised to "ALL".
func NewSpec(year int, company, gender, personnel string, types, departments []string) Spec {
	return Spec{
		Year:              year,
		Company:           orAll(company),
		Gender:            orAll(gender),
		PersonnelCategory: orAll(personnel),
		TrainingTypes:     NewSet(types...),
		Departments:       NewSet(departments...),
	}
}

// Key renders the spec deterministically for use as a cache key. Set members
// are joined with the unit separator so values holding commas stay distinct.
func (s Spec) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.Year))
	for _, part := range []string{s.Company, s.Gender, s.PersonnelCategory} {
		b.WriteByte('|')
		b.WriteString(part)
	}
	b.WriteString("|t=")
	b.WriteString(strings.Join(s.TrainingTypes.Values(), "\x1f"))
	b.WriteString("|d=")
	b.WriteString(strings.Join(s.Departments.Values(), "\x1f"))
	return b.String()
}

// PeriodSpec restricts the certificate and distributed-programme views.
// Year 0 means every year.
type PeriodSpec struct {
	Year    int
	Company string
}

func (p PeriodSpec) Key() string {
	return strconv.Itoa(p.Year) + "|" + orAll(p.Company)
}

func orAll(s string) string {
	if strings.TrimSpace(s) == "" {
		return core.All
	}
	return s
}
