package headcount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Persister saves and restores the whole headcount table.
type Persister interface {
	SaveHeadcounts(ctx context.Context, entries map[string]Entry) error
	LoadHeadcounts(ctx context.Context) (map[string]Entry, error)
}

// Store is the in-memory headcount table. Mutations are persisted
// synchronously on a best-effort basis: a failed save is logged and the
// in-memory change stays.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	revision  uint64
	persister Persister
	logger    *slog.Logger
}

// NewStore returns an empty store. persister may be nil.
func NewStore(persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries:   make(map[string]Entry),
		persister: persister,
		logger:    logger,
	}
}

// Load replaces the in-memory table with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	entries, err := s.persister.LoadHeadcounts(ctx)
	if err != nil {
		return fmt.Errorf("load headcounts: %w", err)
	}
	s.mu.Lock()
	s.entries = make(map[string]Entry, len(entries))
	for y, e := range entries {
		s.entries[y] = e
	}
	s.revision++
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Headcounts loaded", "years", len(entries))
	return nil
}

// Get returns the entry for year, or a zero entry when the year is absent.
// It never creates an entry.
func (s *Store) Get(year string) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[year]
}

// Has reports whether year has an entry.
func (s *Store) Has(year string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[year]
	return ok
}

// Set overwrites the entry for year, creating it if needed.
func (s *Store) Set(ctx context.Context, year string, men, women []int) error {
	e, err := FromSlices(men, women)
	if err != nil {
		return err
	}
	if _, err := parseYear(year); err != nil {
		return err
	}
	s.mutate(ctx, "set", func(m map[string]Entry) { m[year] = e })
	return nil
}

// AddYear creates a zero entry for year.
func (s *Store) AddYear(ctx context.Context, year string) error {
	y, err := parseYear(year)
	if err != nil {
		return err
	}
	if y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: %d not in %d-%d", ErrYearOutOfRange, y, MinYear, MaxYear)
	}
	key := strconv.Itoa(y)
	s.mu.RLock()
	_, exists := s.entries[key]
	s.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrYearExists, key)
	}
	var added bool
	s.mutate(ctx, "add_year", func(m map[string]Entry) {
		if _, ok := m[key]; ok {
			return
		}
		m[key] = Entry{}
		added = true
	})
	if !added {
		return fmt.Errorf("%w: %s", ErrYearExists, key)
	}
	return nil
}

// DeleteYear removes the entry for year.
func (s *Store) DeleteYear(ctx context.Context, year string) error {
	var found bool
	s.mutate(ctx, "delete_year", func(m map[string]Entry) {
		if _, ok := m[year]; ok {
			delete(m, year)
			found = true
		}
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrYearNotFound, year)
	}
	return nil
}

// Years lists stored years, newest first.
func (s *Store) Years() []string {
	s.mu.RLock()
	years := make([]string, 0, len(s.entries))
	for y := range s.entries {
		years = append(years, y)
	}
	s.mu.RUnlock()
	SortYearsDesc(years)
	return years
}

// Snapshot returns a copy of the whole table.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for y, e := range s.entries {
		out[y] = e
	}
	return out
}

// Revision increases on every mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Export serialises the whole table as an indented JSON document.
func (s *Store) Export() ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}

// Import replaces the whole table with the document in data. An invalid
// document leaves the store untouched.
func (s *Store) Import(ctx context.Context, data []byte) (int, error) {
	entries, err := ParseDocument(data)
	if err != nil {
		return 0, err
	}
	s.mutate(ctx, "import", func(m map[string]Entry) {
		for y := range m {
			delete(m, y)
		}
		for y, e := range entries {
			m[y] = e
		}
	})
	return len(entries), nil
}

// ParseDocument decodes an exported headcount document. Entries with
// malformed arrays are read as zeros; a document that is not a JSON object
// is rejected.
func ParseDocument(data []byte) (map[string]Entry, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected an object keyed by year", ErrInvalidImport)
	}
	entries := make(map[string]Entry, len(raw))
	for y, v := range raw {
		entries[strings.TrimSpace(y)] = decodeEntry(v)
	}
	return entries, nil
}

// ExportFileName is the download name of an export taken at now.
func ExportFileName(now time.Time) string {
	return "kadro_verileri_" + now.Format("2006-01-02") + ".json"
}

func (s *Store) mutate(ctx context.Context, op string, fn func(map[string]Entry)) {
	s.mu.Lock()
	fn(s.entries)
	s.revision++
	var snapshot map[string]Entry
	if s.persister != nil {
		snapshot = make(map[string]Entry, len(s.entries))
		for y, e := range s.entries {
			snapshot[y] = e
		}
	}
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if err := s.persister.SaveHeadcounts(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist headcounts",
			"operation", op,
			"error", err)
	}
}

func parseYear(year string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	return y, nil
}

// SortYearsDesc orders year strings numerically, newest first. Non-numeric
// keys sort last.
func SortYearsDesc(years []string) {
	sort.SliceStable(years, func(i, j int) bool {
		a, errA := strconv.Atoi(years[i])
		b, errB := strconv.Atoi(years[j])
		switch {
		case errA != nil && errB != nil:
			return years[i] < years[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return a > b
	})
}

// MergeYears unions stored headcount years with years present in the
// training data, newest first.
func MergeYears(stored []string, dataYears []int) []string {
	seen := make(map[string]struct{}, len(stored)+len(dataYears))
	out := make([]string, 0, len(stored)+len(dataYears))
	add := func(y string) {
		if _, ok := seen[y]; ok {
			return
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	for _, y := range stored {
		add(y)
	}
	for _, y := range dataYears {
		add(strconv.Itoa(y))
	}
	SortYearsDesc(out)
	return out
}
