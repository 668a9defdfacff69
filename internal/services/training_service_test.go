package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"egitim/internal/cache"
	"egitim/internal/core"
	"egitim/internal/dataset"
	"egitim/internal/filter"
	"egitim/internal/headcount"
	"egitim/internal/sheets/memory"
)

const jan2024 = 45292.0

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func grid(rows ...[]core.Cell) core.Grid {
	g := core.Grid{{"Rapor"}, {}, {"Sicil Numarası"}}
	return append(g, rows...)
}

func row(id, session, course, category string, hours, start float64) []core.Cell {
	r := make([]core.Cell, 18)
	r[0] = id
	r[1] = "Ayşe"
	r[2] = "Yılmaz"
	r[3] = session
	r[5] = course
	r[6] = hours
	r[7] = start
	r[9] = category
	r[10] = "KADIN"
	r[11] = "Nemport Liman"
	r[12] = "Operasyon"
	r[17] = "Beyaz Yaka"
	return r
}

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	loads     []dataset.Summary
	headcount []string
}

func (f *fakeNotifier) NotifyDatasetLoaded(_ context.Context, s dataset.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, s)
	return f.err
}

func (f *fakeNotifier) NotifyHeadcountChanged(_ context.Context, op, year string, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headcount = append(f.headcount, op+":"+year)
	return f.err
}

type fakeHistory struct {
	loads []dataset.Summary
	err   error
}

func (f *fakeHistory) RecordLoad(_ context.Context, s dataset.Summary) error {
	if f.err != nil {
		return f.err
	}
	f.loads = append(f.loads, s)
	return nil
}

func (f *fakeHistory) ListLoads(_ context.Context, limit int) ([]dataset.Summary, error) {
	if limit > len(f.loads) {
		limit = len(f.loads)
	}
	return f.loads[:limit], nil
}

type countingRecorder struct {
	nopRecorder
	hits, misses int
	loadErrors   int
	events       map[string]int
}

func (r *countingRecorder) RecordViewCache(_ string, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *countingRecorder) RecordDatasetLoad(_ string, _, _ int, err error) {
	if err != nil {
		r.loadErrors++
	}
}

func (r *countingRecorder) RecordEvent(msgType string, err error) {
	if r.events == nil {
		r.events = make(map[string]int)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.events[msgType+"/"+outcome]++
}

type fixture struct {
	svc      *TrainingService
	src      *memory.Source
	notifier *fakeNotifier
	history  *fakeHistory
	rec      *countingRecorder
	store    *headcount.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		src: memory.New(grid(
			row("1", "S1", "İSG Temel", "MESLEKİ", 8, jan2024),
			row("2", "S1", "İSG Temel", "MESLEKİ", 8, jan2024),
			row("3", "S2", "Forklift", core.CategoryCertificate, 4, 30000),
		)),
		notifier: &fakeNotifier{},
		history:  &fakeHistory{},
		rec:      &countingRecorder{},
		store:    headcount.NewStore(nil, nil),
	}
	versions := 0
	f.svc = NewTrainingService(Deps{
		Loader: &dataset.Loader{
			Now: func() time.Time { return fixedNow },
			NewUUID: func() string {
				versions++
				return "v" + string(rune('0'+versions))
			},
		},
		Headcounts: f.store,
		Sheets:     f.src,
		History:    f.history,
		Notifier:   f.notifier,
		Cache:      cache.NewLRUCache[any](32, 0),
		Metrics:    f.rec,
		Now:        func() time.Time { return fixedNow },
	})
	return f
}

func TestViewsRequireDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Overview(ctx, ViewQuery{}); !errors.Is(err, core.ErrNoDataset) {
		t.Fatalf("overview err=%v", err)
	}
	if _, err := f.svc.Records(ctx, "", 1, 10); !errors.Is(err, core.ErrNoDataset) {
		t.Fatalf("records err=%v", err)
	}
	if _, err := f.svc.DatasetInfo(ctx); !errors.Is(err, core.ErrNoDataset) {
		t.Fatalf("dataset err=%v", err)
	}
}

func TestSyncDisabledWithoutSheets(t *testing.T) {
	svc := NewTrainingService(Deps{})
	if _, err := svc.Sync(context.Background()); !errors.Is(err, ErrSheetsDisabled) {
		t.Fatalf("err=%v", err)
	}
}

func TestSyncLoadsAndAnnounces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum, err := f.svc.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if sum.Records != 3 || sum.Source != SourceSheets || sum.Version != "v1" {
		t.Fatalf("summary %+v", sum)
	}
	if len(f.notifier.loads) != 1 || len(f.history.loads) != 1 {
		t.Fatalf("notified=%d recorded=%d", len(f.notifier.loads), len(f.history.loads))
	}
	if f.rec.events["dataset.loaded/ok"] != 1 {
		t.Fatalf("events %v", f.rec.events)
	}

	info, err := f.svc.DatasetInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Options.MostRecentYear != 2024 || info.Dataset.Version != "v1" {
		t.Fatalf("info %+v", info)
	}
}

func TestOverviewDefaultsToMostRecentYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	o, err := f.svc.Overview(ctx, ViewQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if o.Year != 2024 || o.TotalHours != 16 || o.TotalSessions != 1 || o.TotalEmployees != 2 {
		t.Fatalf("overview %+v", o)
	}
}

func TestViewsAreMemoizedUntilStateChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	q := ViewQuery{Year: 2024}

	if _, err := f.svc.Overview(ctx, q); err != nil {
		t.Fatal(err)
	}
	hits := f.rec.hits
	if _, err := f.svc.Overview(ctx, q); err != nil {
		t.Fatal(err)
	}
	if f.rec.hits != hits+1 {
		t.Fatalf("second call should hit the cache")
	}

	men := make([]int, 12)
	women := make([]int, 12)
	men[0], women[0] = 3, 1
	if err := f.svc.SetHeadcount(ctx, "2024", men, women); err != nil {
		t.Fatal(err)
	}
	misses := f.rec.misses
	o, err := f.svc.Overview(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if f.rec.misses != misses+1 {
		t.Fatalf("headcount change should invalidate the overview")
	}
	if o.Months[0].Headcount != 4 {
		t.Fatalf("january headcount %d", o.Months[0].Headcount)
	}
	if len(f.notifier.headcount) != 1 || f.notifier.headcount[0] != "set:2024" {
		t.Fatalf("headcount events %v", f.notifier.headcount)
	}
}

func TestFailedSyncKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	f.src.FailWith(errors.New("quota exceeded"))
	if _, err := f.svc.Sync(ctx); err == nil {
		t.Fatal("expected error")
	}
	info, err := f.svc.DatasetInfo(ctx)
	if err != nil || info.Dataset.Version != "v1" {
		t.Fatalf("info %+v err=%v", info, err)
	}
	if f.rec.loadErrors != 1 {
		t.Fatalf("load errors %d", f.rec.loadErrors)
	}
}

func TestSideEffectFailuresDoNotFailLoad(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	f.history.err = errors.New("disk full")
	if _, err := f.svc.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if f.rec.events["dataset.loaded/error"] != 1 {
		t.Fatalf("events %v", f.rec.events)
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), "x.xlsx", []byte("not a workbook"))
	if !errors.Is(err, core.ErrUnreadableWorkbook) {
		t.Fatalf("err=%v", err)
	}
}

func TestCertificatesAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	certs, err := f.svc.Certificates(ctx, filter.PeriodSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if certs.Metrics.TotalCertificates != 1 {
		t.Fatalf("certificates %+v", certs.Metrics)
	}

	page, err := f.svc.Records(ctx, "forklift", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].EmployeeID != "3" {
		t.Fatalf("page %+v", page)
	}

	var buf bytes.Buffer
	name, err := f.svc.ExportRecords(ctx, "", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if name != "egitim_kayitlari_2024-06-15.csv" {
		t.Fatalf("name %q", name)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 4 {
		t.Fatalf("csv lines %d", lines)
	}
}

func TestHeadcountYearsMergeDataYears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.AddHeadcountYear(ctx, "2022"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	years := f.svc.HeadcountYears(ctx)
	if len(years) != 2 ||
		years[0] != (HeadcountYear{Year: "2024", Stored: false}) ||
		years[1] != (HeadcountYear{Year: "2022", Stored: true}) {
		t.Fatalf("years %+v", years)
	}

	if err := f.svc.AddHeadcountYear(ctx, "2022"); !errors.Is(err, headcount.ErrYearExists) {
		t.Fatalf("duplicate err=%v", err)
	}
	if err := f.svc.DeleteHeadcountYear(ctx, "1999"); !errors.Is(err, headcount.ErrYearNotFound) {
		t.Fatalf("delete err=%v", err)
	}
	if _, err := f.svc.Headcount(ctx, "abc"); !errors.Is(err, headcount.ErrInvalidYear) {
		t.Fatalf("detail err=%v", err)
	}
}

func TestHeadcountYearKeysAreNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.AddHeadcountYear(ctx, " 02023 "); err != nil {
		t.Fatal(err)
	}
	d, err := f.svc.Headcount(ctx, "2023")
	if err != nil || !d.Stored || d.Year != "2023" {
		t.Fatalf("detail %+v err=%v", d, err)
	}
	if err := f.svc.AddHeadcountYear(ctx, "2023"); !errors.Is(err, headcount.ErrYearExists) {
		t.Fatalf("duplicate err=%v", err)
	}
	if err := f.svc.DeleteHeadcountYear(ctx, "02023"); err != nil {
		t.Fatalf("delete err=%v", err)
	}
	if d, _ := f.svc.Headcount(ctx, "2023"); d.Stored {
		t.Fatal("year still stored after delete")
	}
	if err := f.svc.DeleteHeadcountYear(ctx, "abc"); !errors.Is(err, headcount.ErrInvalidYear) {
		t.Fatalf("delete invalid err=%v", err)
	}
}

func TestHeadcountExportImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	men := []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	women := []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	if err := f.svc.SetHeadcount(ctx, "2024", men, women); err != nil {
		t.Fatal(err)
	}
	data, name, err := f.svc.ExportHeadcounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if name != "kadro_verileri_2024-06-15.json" {
		t.Fatalf("name %q", name)
	}

	other := newFixture(t)
	n, err := other.svc.ImportHeadcounts(ctx, data)
	if err != nil || n != 1 {
		t.Fatalf("import n=%d err=%v", n, err)
	}
	d, err := other.svc.Headcount(ctx, "2024")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Stored || d.AvgMen != 10 || d.AvgWomen != 5 || d.AvgTotal != 15 {
		t.Fatalf("detail %+v", d)
	}

	if _, err := other.svc.ImportHeadcounts(ctx, []byte("[1,2]")); !errors.Is(err, headcount.ErrInvalidImport) {
		t.Fatalf("bad import err=%v", err)
	}
}
