package services

import (
	"context"
	"strconv"
	"strings"

	"egitim/internal/aggregate"
	"egitim/internal/headcount"
	applog "egitim/internal/log"
)

// HeadcountYear is one row of the headcount year list.
type HeadcountYear struct {
	Year   string `json:"year"`
	Stored bool   `json:"stored"`
}

// HeadcountDetail is the editable table of one year plus its averages.
type HeadcountDetail struct {
	Year     string          `json:"year"`
	Stored   bool            `json:"stored"`
	Entry    headcount.Entry `json:"entry"`
	AvgMen   float64         `json:"avgMen"`
	AvgWomen float64         `json:"avgWomen"`
	AvgTotal float64         `json:"avgTotal"`
	Revision uint64          `json:"revision"`
}

// HeadcountYears lists stored years together with years that only appear
// in the training data, newest first.
func (s *TrainingService) HeadcountYears(ctx context.Context) []HeadcountYear {
	stored := s.headcounts.Years()
	var dataYears []int
	if snap, err := s.holder.Current(); err == nil {
		dataYears = s.options(snap).Years
	}
	years := headcount.MergeYears(stored, dataYears)
	out := make([]HeadcountYear, 0, len(years))
	for _, y := range years {
		out = append(out, HeadcountYear{Year: y, Stored: s.headcounts.Has(y)})
	}
	return out
}

// Headcount returns the table for year. Absent years read as zeros.
func (s *TrainingService) Headcount(ctx context.Context, year string) (HeadcountDetail, error) {
	year, err := normalizeYear(year)
	if err != nil {
		return HeadcountDetail{}, err
	}
	e := s.headcounts.Get(year)
	men, women, total := e.MonthlyAverage()
	return HeadcountDetail{
		Year:     year,
		Stored:   s.headcounts.Has(year),
		Entry:    e,
		AvgMen:   aggregate.RoundPerPerson(men),
		AvgWomen: aggregate.RoundPerPerson(women),
		AvgTotal: aggregate.RoundPerPerson(total),
		Revision: s.headcounts.Revision(),
	}, nil
}

func (s *TrainingService) SetHeadcount(ctx context.Context, year string, men, women []int) error {
	year, err := normalizeYear(year)
	if err != nil {
		return err
	}
	if err := s.headcounts.Set(ctx, year, men, women); err != nil {
		return err
	}
	s.headcountChanged(ctx, applog.OpSet, year)
	return nil
}

func (s *TrainingService) AddHeadcountYear(ctx context.Context, year string) error {
	year, err := normalizeYear(year)
	if err != nil {
		return err
	}
	if err := s.headcounts.AddYear(ctx, year); err != nil {
		return err
	}
	s.headcountChanged(ctx, applog.OpAddYear, year)
	return nil
}

func (s *TrainingService) DeleteHeadcountYear(ctx context.Context, year string) error {
	year, err := normalizeYear(year)
	if err != nil {
		return err
	}
	if err := s.headcounts.DeleteYear(ctx, year); err != nil {
		return err
	}
	s.headcountChanged(ctx, applog.OpDelete, year)
	return nil
}

// ExportHeadcounts returns the JSON document and its download name.
func (s *TrainingService) ExportHeadcounts(ctx context.Context) ([]byte, string, error) {
	data, err := s.headcounts.Export()
	if err != nil {
		return nil, "", wrapf(err, "export headcounts")
	}
	return data, headcount.ExportFileName(s.now()), nil
}

// ImportHeadcounts replaces the whole store and returns the number of years read.
func (s *TrainingService) ImportHeadcounts(ctx context.Context, data []byte) (int, error) {
	n, err := s.headcounts.Import(ctx, data)
	if err != nil {
		return 0, err
	}
	s.headcountChanged(ctx, applog.OpImport, "")
	return n, nil
}

func (s *TrainingService) headcountChanged(ctx context.Context, op, year string) {
	rev := s.headcounts.Revision()
	s.metrics.RecordHeadcountMutation(op)
	s.logger.InfoContext(ctx, "Headcounts changed",
		applog.FieldOperation, op,
		applog.FieldYear, year,
		applog.FieldRevision, rev)
	if s.notifier == nil {
		return
	}
	err := s.notifier.NotifyHeadcountChanged(ctx, op, year, rev)
	s.metrics.RecordEvent("headcount.changed", err)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish headcount event", applog.FieldError, err)
	}
}

func normalizeYear(year string) (string, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return "", wrapf(headcount.ErrInvalidYear, "year %q", year)
	}
	return strconv.Itoa(y), nil
}

