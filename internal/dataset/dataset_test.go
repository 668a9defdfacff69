package dataset

import (
	"context"
	"errors"
	"testing"
	"time"

	"egitim/internal/core"
	"egitim/internal/sheets/memory"
)

func grid(rows ...[]core.Cell) core.Grid {
	g := core.Grid{{"Rapor"}, {}, {"Sicil Numarası"}}
	return append(g, rows...)
}

func row(id, company string) []core.Cell {
	r := make([]core.Cell, 18)
	r[0] = id
	r[1] = "Ayşe"
	r[6] = 2.0
	r[9] = "MESLEKİ"
	r[11] = company
	return r
}

func fixedLoader() *Loader {
	return &Loader{
		Now:     func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
		NewUUID: func() string { return "v1" },
	}
}

func TestLoadBuildsSnapshot(t *testing.T) {
	src := memory.New(grid(
		row("1", "Nemport Liman"),
		[]core.Cell{"Sicil Numarası"},
		row("", "Nemport"),
		row("2", "Nemport"),
	))
	snap, err := fixedLoader().Load(context.Background(), "upload.xlsx", src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sum := snap.Summary()
	if sum.Version != "v1" || sum.Source != "upload.xlsx" || sum.Records != 2 ||
		sum.RawRows != 4 || sum.RepeatedHeaders != 1 || sum.Skipped != 1 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestFailedLoadKeepsPreviousSnapshot(t *testing.T) {
	var h Holder
	if _, err := h.Current(); !errors.Is(err, core.ErrNoDataset) {
		t.Fatalf("empty holder err=%v", err)
	}

	l := fixedLoader()
	first, err := l.Load(context.Background(), "a", memory.New(grid(row("1", "X"))))
	if err != nil {
		t.Fatal(err)
	}
	h.Replace(first)

	if _, err := l.Load(context.Background(), "b", memory.New(core.Grid{{"only one row"}})); !errors.Is(err, core.ErrGridTooShort) {
		t.Fatalf("short grid err=%v", err)
	}
	broken := memory.New(nil)
	broken.FailWith(core.ErrUnreadableWorkbook)
	if _, err := l.Load(context.Background(), "c", broken); !errors.Is(err, core.ErrUnreadableWorkbook) {
		t.Fatalf("unreadable err=%v", err)
	}

	cur, err := h.Current()
	if err != nil || cur != first {
		t.Fatalf("holder changed after failed loads: %v %v", cur, err)
	}
}

func TestReplaceReturnsPrevious(t *testing.T) {
	var h Holder
	a, b := &Snapshot{Version: "a"}, &Snapshot{Version: "b"}
	if prev := h.Replace(a); prev != nil {
		t.Fatalf("prev=%v", prev)
	}
	if prev := h.Replace(b); prev != a {
		t.Fatalf("prev=%v", prev)
	}
}

func TestNewLoaderUsesUUIDs(t *testing.T) {
	l := NewLoader()
	a, _ := l.FromGrid("x", grid())
	b, _ := l.FromGrid("x", grid())
	if a.Version == "" || a.Version == b.Version {
		t.Fatalf("versions %q %q", a.Version, b.Version)
	}
}
