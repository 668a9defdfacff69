package sheets

import (
	"context"
	"strings"

	"egitim/internal/core"
)

// Ports for inbound grid sources.
type (
	// GridReader returns the first sheet of a training export as raw cells,
	// without interpreting any header rows.
	GridReader interface {
		ReadGrid(ctx context.Context) (core.Grid, error)
	}

	// GridReaderFunc adapts a function to GridReader.
	GridReaderFunc func(ctx context.Context) (core.Grid, error)
)

func (f GridReaderFunc) ReadGrid(ctx context.Context) (core.Grid, error) { return f(ctx) }

// CleanCell maps source-specific blanks onto nil and leaves numbers and
// strings alone.
func CleanCell(v any) core.Cell {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return x
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		return x
	}
	return nil
}

// CleanGrid applies CleanCell to every cell of values.
func CleanGrid(values [][]any) core.Grid {
	grid := make(core.Grid, len(values))
	for i, row := range values {
		out := make([]core.Cell, len(row))
		for j, v := range row {
			out[j] = CleanCell(v)
		}
		grid[i] = out
	}
	return grid
}
