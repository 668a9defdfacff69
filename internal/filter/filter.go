// Package filter selects the records each view aggregates.
package filter

import (
	"strings"

	"egitim/internal/core"
	"egitim/internal/locale"
)

// DefaultCompany is the company the dashboards open on.
const DefaultCompany = "Nemport"

// Engine applies view filters. The default company is matched by
// case-insensitive substring so legal-suffix variants of its name are
// included; every other company must match exactly.
type Engine struct {
	DefaultCompany string
}

// NewEngine returns an engine for defaultCompany, falling back to DefaultCompany.
func NewEngine(defaultCompany string) Engine {
	if strings.TrimSpace(defaultCompany) == "" {
		defaultCompany = DefaultCompany
	}
	return Engine{DefaultCompany: defaultCompany}
}

// MatchCompany reports whether company satisfies the selector.
func (e Engine) MatchCompany(company, selector string) bool {
	switch selector {
	case core.All, "":
		return true
	case e.DefaultCompany:
		return company != "" && strings.Contains(strings.ToLower(company), strings.ToLower(e.DefaultCompany))
	}
	return company == selector
}

// Apply returns the records an analytical view aggregates. Certificate
// records are always excluded.
func (e Engine) Apply(records []core.TrainingRecord, spec Spec) []core.TrainingRecord {
	out := make([]core.TrainingRecord, 0, len(records))
	for _, r := range records {
		if e.Match(r, spec) {
			out = append(out, r)
		}
	}
	return out
}

// Match evaluates the analytical predicates against one record.
func (e Engine) Match(r core.TrainingRecord, spec Spec) bool {
	if r.IsCertificate() {
		return false
	}
	if y, ok := core.YearOf(r.StartDate); !ok || y != spec.Year {
		return false
	}
	if spec.TrainingTypes.Len() > 0 && !spec.TrainingTypes.Has(r.Category) {
		return false
	}
	if spec.Departments.Len() > 0 && !spec.Departments.Has(r.Department) {
		return false
	}
	if !e.MatchCompany(r.Company, spec.Company) {
		return false
	}
	if spec.Gender != core.All && r.Gender != spec.Gender {
		return false
	}
	if spec.PersonnelCategory != core.All && r.PersonnelCategory != spec.PersonnelCategory {
		return false
	}
	return true
}

// Certificates keeps only certificate records within the period.
func (e Engine) Certificates(records []core.TrainingRecord, p PeriodSpec) []core.TrainingRecord {
	return e.byCategory(records, core.CategoryCertificate, p)
}

// Distributed keeps only distributed-programme records within the period.
func (e Engine) Distributed(records []core.TrainingRecord, p PeriodSpec) []core.TrainingRecord {
	return e.byCategory(records, core.CategoryDistributed, p)
}

func (e Engine) byCategory(records []core.TrainingRecord, category string, p PeriodSpec) []core.TrainingRecord {
	out := make([]core.TrainingRecord, 0)
	for _, r := range records {
		if r.Category != category {
			continue
		}
		if p.Year != 0 {
			if y, ok := core.YearOf(r.StartDate); !ok || y != p.Year {
				continue
			}
		}
		if !e.MatchCompany(r.Company, p.Company) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Search backs the data table: no structural filtering, certificates
// included, and a Turkish-aware case-insensitive substring match on
// identity, course and organisation fields.
func Search(records []core.TrainingRecord, term string) []core.TrainingRecord {
	needle := locale.Lower(locale.Turkish, strings.TrimSpace(term))
	if needle == "" {
		return records
	}
	out := make([]core.TrainingRecord, 0)
	for _, r := range records {
		if matchesSearch(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matchesSearch(r core.TrainingRecord, needle string) bool {
	fields := [...]string{
		r.EmployeeID,
		r.FirstName,
		r.LastName,
		r.FirstName + " " + r.LastName,
		r.CourseName,
		r.Category,
		r.Department,
		r.Company,
	}
	for _, f := range fields {
		if f != "" && strings.Contains(locale.Lower(locale.Turkish, f), needle) {
			return true
		}
	}
	return false
}
