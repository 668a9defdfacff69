// Package normalize turns a raw training export grid into TrainingRecords.
package normalize

import (
	"fmt"

	"egitim/internal/core"
)

// The export always starts with two metadata rows followed by the column
// header row.
const (
	metadataRows = 2
	headerRows   = 1
	leadingRows  = metadataRows + headerRows
)

// Column offsets in the export. Columns 14 to 16 are not used.
const (
	colEmployeeID = 0
	colFirstName  = 1
	colLastName   = 2
	colSession    = 3
	colCourseCode = 4
	colCourseName = 5
	colDuration   = 6
	colStart      = 7
	colEnd        = 8
	colCategory   = 9
	colGender     = 10
	colCompany    = 11
	colDepartment = 12
	colPosition   = 13
	colPersonnel  = 17
)

// headerSentinels mark header rows the export repeats mid-sheet.
var headerSentinels = map[string]struct{}{
	"Sicil Numarası":       {},
	"Eğitim Katılımcıları": {},
}

// Result is the outcome of normalizing one grid.
type Result struct {
	Records []core.TrainingRecord
	// RawRows counts data rows after the leading rows were stripped.
	RawRows int
	// RepeatedHeaders counts dropped sentinel rows.
	RepeatedHeaders int
	// Skipped counts rows dropped for missing employee id or company.
	Skipped int
}

// Normalize converts grid into records, preserving row order.
func Normalize(grid core.Grid) ([]core.TrainingRecord, error) {
	res, err := NormalizeWithStats(grid)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// NormalizeWithStats is Normalize plus the row counts reported after an upload.
func NormalizeWithStats(grid core.Grid) (Result, error) {
	if len(grid) < leadingRows {
		return Result{}, fmt.Errorf("%w: got %d rows, need at least %d", core.ErrGridTooShort, len(grid), leadingRows)
	}

	rows := grid[leadingRows:]
	res := Result{
		Records: make([]core.TrainingRecord, 0, len(rows)),
		RawRows: len(rows),
	}
	for _, row := range rows {
		if isRepeatedHeader(row) {
			res.RepeatedHeaders++
			continue
		}
		rec := Row(row)
		if !rec.Valid() {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func isRepeatedHeader(row []core.Cell) bool {
	first, ok := core.CellAt(row, 0).(string)
	if !ok {
		return false
	}
	_, hit := headerSentinels[first]
	return hit
}

// Row maps one data row onto a record by column position. Missing or
// malformed cells degrade to empty values.
func Row(row []core.Cell) core.TrainingRecord {
	cell := func(i int) core.Cell { return core.CellAt(row, i) }
	text := func(i int) string { return core.CellString(cell(i)) }

	return core.TrainingRecord{
		EmployeeID:        text(colEmployeeID),
		FirstName:         text(colFirstName),
		LastName:          text(colLastName),
		SessionID:         text(colSession),
		CourseCode:        text(colCourseCode),
		CourseName:        text(colCourseName),
		DurationHours:     core.Duration(cell(colDuration)),
		StartDate:         dateCell(cell(colStart)),
		EndDate:           dateCell(cell(colEnd)),
		Category:          core.CanonicalCategory(text(colCategory)),
		Gender:            text(colGender),
		Company:           text(colCompany),
		Department:        text(colDepartment),
		Position:          text(colPosition),
		PersonnelCategory: text(colPersonnel),
	}
}

// dateCell keeps the raw date value when it is something CoerceDate can
// work with and drops anything else.
func dateCell(v core.Cell) core.Cell {
	switch x := v.(type) {
	case string:
		return x
	case nil, bool:
		return nil
	}
	if f, ok := core.CellFloat(v); ok {
		return f
	}
	return nil
}
