package services

import (
	"context"
	"io"
	"strconv"

	"egitim/internal/aggregate"
	"egitim/internal/dataset"
	"egitim/internal/export"
	"egitim/internal/filter"
)

// ViewQuery selects the records of an analytical view. Year 0 means the
// most recent year present in the dataset.
type ViewQuery struct {
	Year        int
	Company     string
	Gender      string
	Personnel   string
	Types       []string
	Departments []string
}

// view resolves q against the active snapshot.
func (s *TrainingService) view(q ViewQuery) (*dataset.Snapshot, filter.Spec, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, filter.Spec{}, err
	}
	year := q.Year
	if year == 0 {
		year = s.options(snap).MostRecentYear
	}
	spec := filter.NewSpec(year, q.Company, q.Gender, q.Personnel, q.Types, q.Departments)
	return snap, spec, nil
}

func (s *TrainingService) input(snap *dataset.Snapshot, spec filter.Spec) aggregate.Input {
	return aggregate.Input{
		Records:   s.engine.Apply(snap.Records, spec),
		Year:      spec.Year,
		Now:       s.now(),
		Headcount: s.headcounts.Get(strconv.Itoa(spec.Year)),
	}
}

func (s *TrainingService) Overview(ctx context.Context, q ViewQuery) (aggregate.Overview, error) {
	snap, spec, err := s.view(q)
	if err != nil {
		return aggregate.Overview{}, err
	}
	return memo(s, "overview", snap, spec.Key(), func() aggregate.Overview {
		return aggregate.BuildOverview(s.input(snap, spec))
	}), nil
}

func (s *TrainingService) Monthly(ctx context.Context, q ViewQuery) (aggregate.MonthlyView, error) {
	snap, spec, err := s.view(q)
	if err != nil {
		return aggregate.MonthlyView{}, err
	}
	return memo(s, "monthly", snap, spec.Key(), func() aggregate.MonthlyView {
		return aggregate.BuildMonthly(s.input(snap, spec))
	}), nil
}

func (s *TrainingService) Breakdown(ctx context.Context, q ViewQuery) (aggregate.Breakdown, error) {
	snap, spec, err := s.view(q)
	if err != nil {
		return aggregate.Breakdown{}, err
	}
	return memo(s, "breakdown", snap, spec.Key(), func() aggregate.Breakdown {
		return aggregate.BuildBreakdown(s.input(snap, spec))
	}), nil
}

func (s *TrainingService) Departments(ctx context.Context, q ViewQuery, sortBy aggregate.DepartmentSort) (aggregate.DepartmentsView, error) {
	snap, spec, err := s.view(q)
	if err != nil {
		return aggregate.DepartmentsView{}, err
	}
	return memo(s, "departments", snap, spec.Key()+"|s="+string(sortBy), func() aggregate.DepartmentsView {
		return aggregate.BuildDepartments(s.input(snap, spec), sortBy)
	}), nil
}

// TopTrainings ranks courses by hours; limit <= 0 uses the default.
func (s *TrainingService) TopTrainings(ctx context.Context, q ViewQuery, limit int) (aggregate.TopTrainingsView, error) {
	if limit <= 0 {
		limit = aggregate.DefaultTopTrainings
	}
	snap, spec, err := s.view(q)
	if err != nil {
		return aggregate.TopTrainingsView{}, err
	}
	return memo(s, "top_trainings", snap, spec.Key()+"|n="+strconv.Itoa(limit), func() aggregate.TopTrainingsView {
		return aggregate.BuildTopTrainings(s.input(snap, spec), limit)
	}), nil
}

func (s *TrainingService) Certificates(ctx context.Context, p filter.PeriodSpec) (aggregate.CertificatesView, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return aggregate.CertificatesView{}, err
	}
	return memo(s, "certificates", snap, p.Key(), func() aggregate.CertificatesView {
		return aggregate.BuildCertificates(s.engine.Certificates(snap.Records, p))
	}), nil
}

func (s *TrainingService) Distributed(ctx context.Context, p filter.PeriodSpec) (aggregate.ProgramsView, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return aggregate.ProgramsView{}, err
	}
	return memo(s, "distributed", snap, p.Key(), func() aggregate.ProgramsView {
		return aggregate.BuildPrograms(s.engine.Distributed(snap.Records, p))
	}), nil
}

// Records returns one page of the data table, every record included.
func (s *TrainingService) Records(ctx context.Context, search string, page, size int) (aggregate.Page, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return aggregate.Page{}, err
	}
	return aggregate.Paginate(filter.Search(snap.Records, search), page, size), nil
}

// ExportRecords writes the searched data table as CSV and returns the
// download name.
func (s *TrainingService) ExportRecords(ctx context.Context, search string, w io.Writer) (string, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return "", err
	}
	records := filter.Search(snap.Records, search)
	if err := export.WriteCSV(w, records); err != nil {
		return "", wrapf(err, "write csv")
	}
	return export.FileName(s.now()), nil
}

