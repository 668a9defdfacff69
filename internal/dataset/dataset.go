// Package dataset owns the currently loaded set of training records.
package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"egitim/internal/core"
	"egitim/internal/normalize"
	"egitim/internal/sheets"
)

// Snapshot is one loaded dataset. It is never modified after creation.
type Snapshot struct {
	Version         string
	Source          string
	LoadedAt        time.Time
	RawRows         int
	RepeatedHeaders int
	Skipped         int
	Records         []core.TrainingRecord
}

// Summary is the part of a snapshot reported to clients and to the load
// history.
type Summary struct {
	Version         string    `json:"version"`
	Source          string    `json:"source"`
	LoadedAt        time.Time `json:"loadedAt"`
	RawRows         int       `json:"rawRows"`
	RepeatedHeaders int       `json:"repeatedHeaders"`
	Records         int       `json:"records"`
	Skipped         int       `json:"skipped"`
}

func (s *Snapshot) Summary() Summary {
	return Summary{
		Version:         s.Version,
		Source:          s.Source,
		LoadedAt:        s.LoadedAt,
		RawRows:         s.RawRows,
		RepeatedHeaders: s.RepeatedHeaders,
		Records:         len(s.Records),
		Skipped:         s.Skipped,
	}
}

// Holder keeps the current snapshot. The zero value holds nothing.
type Holder struct {
	mu      sync.RWMutex
	current *Snapshot
}

// Current returns the active snapshot or core.ErrNoDataset.
func (h *Holder) Current() (*Snapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil, core.ErrNoDataset
	}
	return h.current, nil
}

// Replace installs snap and returns the snapshot it displaced, if any.
func (h *Holder) Replace(snap *Snapshot) *Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = snap
	return prev
}

// Loader turns grid sources into snapshots.
type Loader struct {
	Now     func() time.Time
	NewUUID func() string
}

func NewLoader() *Loader {
	return &Loader{
		Now:     time.Now,
		NewUUID: func() string { return uuid.NewString() },
	}
}

// Load reads and normalizes one grid. It does not touch any Holder, so a
// failure here leaves the active dataset as it was.
func (l *Loader) Load(ctx context.Context, source string, reader sheets.GridReader) (*Snapshot, error) {
	grid, err := reader.ReadGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return l.FromGrid(source, grid)
}

// FromGrid builds a snapshot from an already read grid.
func (l *Loader) FromGrid(source string, grid core.Grid) (*Snapshot, error) {
	res, err := normalize.NormalizeWithStats(grid)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", source, err)
	}
	return &Snapshot{
		Version:         l.NewUUID(),
		Source:          source,
		LoadedAt:        l.Now().UTC(),
		RawRows:         res.RawRows,
		RepeatedHeaders: res.RepeatedHeaders,
		Skipped:         res.Skipped,
		Records:         res.Records,
	}, nil
}
