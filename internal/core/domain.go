package core

import (
	"errors"
	"strings"
)

// Reserved training categories as they appear in the export.
const (
	CategoryCertificate = "EHLİYET-SERTİFİKA"
	CategoryDistributed = "YETİŞTİRME"
	CategoryOHS         = "İSG"
	CategoryTechnical   = "TEKNİK"
)

const (
	GenderMale   = "Erkek"
	GenderFemale = "Kadın"

	// All is the selector value that disables a filter dimension.
	All = "ALL"

	// Unspecified labels groups whose key field is empty.
	Unspecified = "Belirtilmemiş"
	// Other labels records without a category in per-category breakdowns.
	Other = "Diğer"
)

type (
	// Cell is a raw spreadsheet value: nil, string or float64.
	Cell = any

	// Grid is a row-major sheet as read from a workbook.
	Grid [][]Cell

	// TrainingRecord is one employee's participation in one training session.
	TrainingRecord struct {
		EmployeeID        string  `json:"employeeId"`
		FirstName         string  `json:"firstName"`
		LastName          string  `json:"lastName"`
		SessionID         string  `json:"sessionId"`
		CourseCode        string  `json:"courseCode"`
		CourseName        string  `json:"courseName"`
		DurationHours     float64 `json:"durationHours"`
		StartDate         Cell    `json:"startDate"`
		EndDate           Cell    `json:"endDate"`
		Category          string  `json:"category"`
		Gender            string  `json:"gender"`
		Company           string  `json:"company"`
		Department        string  `json:"department"`
		Position          string  `json:"position"`
		PersonnelCategory string  `json:"personnelCategory"`
	}
)

var (
	ErrGridTooShort       = errors.New("grid too short to contain header rows")
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	ErrNoDataset          = errors.New("no dataset loaded")
)

// Valid reports whether the record carries the fields every aggregation relies on.
func (r TrainingRecord) Valid() bool {
	return r.EmployeeID != "" && r.Company != ""
}

// FullName joins first and last name with a single space.
func (r TrainingRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// IsCertificate reports whether the record is a licence or certificate entry.
func (r TrainingRecord) IsCertificate() bool { return r.Category == CategoryCertificate }

// IsDistributed reports whether the record's hours are amortized over the year.
func (r TrainingRecord) IsDistributed() bool { return r.Category == CategoryDistributed }

// CanonicalCategory upper-cases a category label and collapses the dotted and
// dotless spellings of the İSG and TEKNİK categories.
func CanonicalCategory(s string) string {
	u := strings.ToUpper(s)
	switch u {
	case "ISG", CategoryOHS:
		return CategoryOHS
	case "TEKNIK", CategoryTechnical:
		return CategoryTechnical
	}
	return u
}
