// Package export renders records for download.
package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"egitim/internal/core"
)

var header = []string{
	"Sicil No", "Ad", "Soyad", "Eğitim Adı", "Süre (Saat)", "Başlangıç", "Bitiş",
	"Eğitim Türü", "Cinsiyet", "Şirket", "Bölüm", "Pozisyon", "Personel Statü",
}

const bom = "\ufeff"

// WriteCSV writes records as a spreadsheet-friendly CSV: UTF-8 BOM, every
// field quoted, one record per line.
func WriteCSV(w io.Writer, records []core.TrainingRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return err
	}
	writeRow(bw, header)
	for _, r := range records {
		writeRow(bw, []string{
			r.EmployeeID,
			r.FirstName,
			r.LastName,
			r.CourseName,
			strconv.FormatFloat(r.DurationHours, 'f', -1, 64),
			core.FormatDate(r.StartDate),
			core.FormatDate(r.EndDate),
			r.Category,
			r.Gender,
			r.Company,
			r.Department,
			r.Position,
			r.PersonnelCategory,
		})
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// FileName is the download name for an export made on day now.
func FileName(now time.Time) string {
	return "egitim_kayitlari_" + now.Format("2006-01-02") + ".csv"
}
