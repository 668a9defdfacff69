package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"egitim/internal/core"
)

func TestWriteCSV(t *testing.T) {
	records := []core.TrainingRecord{
		{
			EmployeeID: "1001", FirstName: "Ayşe", LastName: `O"Neil`,
			CourseName: "Yangın, Tahliye", DurationHours: 2.5,
			StartDate: 45292.0, EndDate: nil,
			Category: "İSG", Gender: "Kadın", Company: "Nemport",
			Department: "Liman", Position: "Operatör", PersonnelCategory: "Mavi Yaka",
		},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Fatal("missing BOM")
	}
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, "\ufeff"), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], `"Sicil No","Ad","Soyad","Eğitim Adı","Süre (Saat)"`) ||
		!strings.HasSuffix(lines[0], `"Personel Statü"`) {
		t.Errorf("header %q", lines[0])
	}
	want := `"1001","Ayşe","O""Neil","Yangın, Tahliye","2.5","01.01.2024","-","İSG","Kadın","Nemport","Liman","Operatör","Mavi Yaka"`
	if lines[1] != want {
		t.Errorf("row\n got %s\nwant %s", lines[1], want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected header only, got %q", buf.String())
	}
}

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	if got != "egitim_kayitlari_2024-03-09.csv" {
		t.Fatalf("got %q", got)
	}
}
