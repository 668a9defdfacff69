package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"egitim/internal/aggregate"
	"egitim/internal/cache"
	"egitim/internal/dataset"
	"egitim/internal/filter"
	"egitim/internal/headcount"
	applog "egitim/internal/log"
	"egitim/internal/sheets"
	"egitim/internal/sheets/xlsx"
)

// Source kinds used in snapshot sources and metrics.
const (
	SourceUpload = "upload"
	SourceSheets = "sheets"
	SourceSeed   = "seed"
)

var ErrSheetsDisabled = errors.New("google sheets source not configured")

// Notifier announces state changes to other systems.
type Notifier interface {
	NotifyDatasetLoaded(ctx context.Context, s dataset.Summary) error
	NotifyHeadcountChanged(ctx context.Context, op, year string, revision uint64) error
}

// LoadHistory records dataset loads.
type LoadHistory interface {
	RecordLoad(ctx context.Context, s dataset.Summary) error
	ListLoads(ctx context.Context, limit int) ([]dataset.Summary, error)
}

// Recorder receives service metrics.
type Recorder interface {
	RecordDatasetLoad(source string, records, skipped int, err error)
	ObserveView(view string, d time.Duration)
	RecordViewCache(view string, hit bool)
	RecordEvent(msgType string, err error)
	RecordHeadcountMutation(op string)
}

// Pinger is implemented by dependencies that /readyz should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires a TrainingService. Only Headcounts is required; everything
// else has a working default.
type Deps struct {
	Holder     *dataset.Holder
	Loader     *dataset.Loader
	Headcounts *headcount.Store
	Engine     filter.Engine
	Sheets     sheets.GridReader
	History    LoadHistory
	Notifier   Notifier
	Cache      cache.Cache[any]
	Metrics    Recorder
	Pingers    []Pinger
	Logger     *applog.Logger
	Now        func() time.Time
}

// TrainingService coordinates the active dataset, headcounts and the
// analytical views computed over them.
type TrainingService struct {
	holder     *dataset.Holder
	loader     *dataset.Loader
	headcounts *headcount.Store
	engine     filter.Engine
	sheets     sheets.GridReader
	history    LoadHistory
	notifier   Notifier
	cache      cache.Cache[any]
	metrics    Recorder
	pingers    []Pinger
	logger     *applog.Logger
	events     *applog.StructuredLogger
	now        func() time.Time
}

func NewTrainingService(d Deps) *TrainingService {
	s := &TrainingService{
		holder:     d.Holder,
		loader:     d.Loader,
		headcounts: d.Headcounts,
		engine:     d.Engine,
		sheets:     d.Sheets,
		history:    d.History,
		notifier:   d.Notifier,
		cache:      d.Cache,
		metrics:    d.Metrics,
		pingers:    d.Pingers,
		logger:     d.Logger,
		now:        d.Now,
	}
	if s.holder == nil {
		s.holder = &dataset.Holder{}
	}
	if s.loader == nil {
		s.loader = dataset.NewLoader()
	}
	if s.headcounts == nil {
		s.headcounts = headcount.NewStore(nil, nil)
	}
	if s.engine.DefaultCompany == "" {
		s.engine = filter.NewEngine(filter.DefaultCompany)
	}
	if s.cache == nil {
		s.cache = cache.Nop[any]{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = applog.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = s.logger.WithComponent(applog.ComponentDataset)
	s.events = applog.NewStructuredLogger(s.logger)
	return s
}

// Upload replaces the active dataset with the first sheet of an xlsx file.
func (s *TrainingService) Upload(ctx context.Context, filename string, data []byte) (dataset.Summary, error) {
	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "upload.xlsx"
	}
	return s.load(ctx, SourceUpload, SourceUpload+":"+name, xlsx.NewReader(data))
}

// Seed loads a workbook at startup. It behaves like an upload.
func (s *TrainingService) Seed(ctx context.Context, path string, data []byte) (dataset.Summary, error) {
	return s.load(ctx, SourceSeed, SourceSeed+":"+filepath.Base(path), xlsx.NewReader(data))
}

// Sync reloads the dataset from the configured Google Sheet.
func (s *TrainingService) Sync(ctx context.Context) (dataset.Summary, error) {
	if s.sheets == nil {
		return dataset.Summary{}, ErrSheetsDisabled
	}
	return s.load(ctx, SourceSheets, SourceSheets, s.sheets)
}

func (s *TrainingService) load(ctx context.Context, kind, source string, reader sheets.GridReader) (dataset.Summary, error) {
	snap, err := s.loader.Load(ctx, source, reader)
	if err != nil {
		s.metrics.RecordDatasetLoad(kind, 0, 0, err)
		s.events.LogError(ctx, "Dataset load failed", err, kind, applog.NewFields().WithComponent(applog.ComponentDataset))
		return dataset.Summary{}, err
	}
	s.holder.Replace(snap)
	s.cache.Purge()

	sum := snap.Summary()
	s.metrics.RecordDatasetLoad(kind, sum.Records, sum.Skipped, nil)
	s.events.LogDatasetLoaded(ctx, kind, sum.Version, sum.Source, sum.RawRows, sum.Records, sum.Skipped)

	if s.history != nil {
		if err := s.history.RecordLoad(ctx, sum); err != nil {
			s.logger.WarnContext(ctx, "Failed to record dataset load", applog.FieldError, err)
		}
	}
	if s.notifier != nil {
		err := s.notifier.NotifyDatasetLoaded(ctx, sum)
		s.metrics.RecordEvent("dataset.loaded", err)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to publish dataset event", applog.FieldError, err)
		}
	}
	return sum, nil
}

// DatasetInfo describes the active dataset and the values its filters offer.
type DatasetInfo struct {
	Dataset dataset.Summary   `json:"dataset"`
	Options aggregate.Options `json:"options"`
}

func (s *TrainingService) DatasetInfo(ctx context.Context) (DatasetInfo, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return DatasetInfo{}, err
	}
	return DatasetInfo{Dataset: snap.Summary(), Options: s.options(snap)}, nil
}

// History lists recent loads; empty when no history backend is configured.
func (s *TrainingService) History(ctx context.Context, limit int) ([]dataset.Summary, error) {
	if s.history == nil {
		return []dataset.Summary{}, nil
	}
	return s.history.ListLoads(ctx, limit)
}

// Ready reports whether every backing dependency answers.
func (s *TrainingService) Ready(ctx context.Context) error {
	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *TrainingService) options(snap *dataset.Snapshot) aggregate.Options {
	return memo(s, "options", snap, "", func() aggregate.Options {
		return aggregate.BuildOptions(snap.Records)
	})
}

// memo computes build once per view, dataset version, headcount revision,
// calendar month and filter key.
func memo[T any](s *TrainingService, view string, snap *dataset.Snapshot, specKey string, build func() T) T {
	key := cache.Key(
		view,
		snap.Version,
		strconv.FormatUint(s.headcounts.Revision(), 10),
		s.now().Format("2006-01"),
		specKey,
	)
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.metrics.RecordViewCache(view, true)
			return typed
		}
	}
	s.metrics.RecordViewCache(view, false)

	start := time.Now()
	out := build()
	s.metrics.ObserveView(view, time.Since(start))
	s.cache.Set(key, out)
	return out
}

type nopRecorder struct{}

func (nopRecorder) RecordDatasetLoad(string, int, int, error) {}
func (nopRecorder) ObserveView(string, time.Duration)         {}
func (nopRecorder) RecordViewCache(string, bool)              {}
func (nopRecorder) RecordEvent(string, error)                 {}
func (nopRecorder) RecordHeadcountMutation(string)            {}

// wrapf keeps sentinel errors matchable through errors.Is.
func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
