package xlsx

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"egitim/internal/core"
)

func workbook(t *testing.T, cells map[string]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for ref, v := range cells {
		if err := f.SetCellValue("Sheet1", ref, v); err != nil {
			t.Fatalf("set %s: %v", ref, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestParseTypedCells(t *testing.T) {
	data := workbook(t, map[string]any{
		"A1": "Rapor",
		"A4": "1001",
		"B4": "Ayşe",
		"G4": 12.5,
		"H4": 45292,
		"O4": "0123",
	})

	grid, err := Parse(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(grid) != 4 {
		t.Fatalf("rows=%d", len(grid))
	}
	if grid[0][0] != "Rapor" {
		t.Errorf("A1=%#v", grid[0][0])
	}
	row := grid[3]
	if row[0] != "1001" {
		t.Errorf("text id should stay a string, got %#v", row[0])
	}
	if row[1] != "Ayşe" {
		t.Errorf("B4=%#v", row[1])
	}
	if row[2] != nil {
		t.Errorf("blank C4 should be nil, got %#v", row[2])
	}
	if row[6] != 12.5 {
		t.Errorf("G4=%#v", row[6])
	}
	if row[7] != 45292.0 {
		t.Errorf("H4=%#v", row[7])
	}
	if row[14] != "0123" {
		t.Errorf("O4=%#v", row[14])
	}
}

func TestReaderDecodesDateSerial(t *testing.T) {
	data := workbook(t, map[string]any{"A1": 45292})
	grid, err := NewReader(data).ReadGrid(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	d, ok := core.CoerceDate(grid[0][0])
	if !ok || d.Year() != 2024 || d.Month() != 1 || d.Day() != 1 {
		t.Fatalf("date=%v ok=%v", d, ok)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(context.Background(), bytes.NewReader([]byte("not a workbook")))
	if !errors.Is(err, core.ErrUnreadableWorkbook) {
		t.Fatalf("err=%v", err)
	}
}
