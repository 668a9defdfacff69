// Package memory serves a fixed grid, for tests and demo data.
package memory

import (
	"context"
	"sync"

	"egitim/internal/core"
	"egitim/internal/sheets"
)

// Source is a GridReader over an in-memory grid.
type Source struct {
	mu   sync.RWMutex
	grid core.Grid
	err  error
}

var _ sheets.GridReader = (*Source)(nil)

func New(grid core.Grid) *Source {
	return &Source{grid: grid}
}

// Replace swaps the grid served by later reads.
func (s *Source) Replace(grid core.Grid) {
	s.mu.Lock()
	s.grid = grid
	s.mu.Unlock()
}

// FailWith makes later reads return err; nil clears it.
func (s *Source) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// ReadGrid returns a copy of the grid so callers cannot alter the source.
func (s *Source) ReadGrid(ctx context.Context) (core.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(core.Grid, len(s.grid))
	for i, row := range s.grid {
		out[i] = append([]core.Cell(nil), row...)
	}
	return out, nil
}
