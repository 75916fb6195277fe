package analytics

import (
	"io"
	"strconv"
	"strings"

	"github.com/pathoreport/pathoreport/internal/domain/report"
)

// CSVFileName is the suggested download name of the report export.
const CSVFileName = "lab-reports.csv"

const csvHeader = "Patient Name,Date,Total Price"

// WriteCSV writes one "name,date,total" row per report under a header row.
// Fields are joined with commas and never quoted, so a name containing a
// comma or quote shifts its row's columns. Rows are separated by "\n" with
// no trailing newline.
func WriteCSV(w io.Writer, reports []report.Report) error {
	rows := make([]string, 0, len(reports)+1)
	rows = append(rows, csvHeader)
	for _, r := range reports {
		date, _, _ := strings.Cut(r.CreatedAt, "T")
		rows = append(rows, strings.Join([]string{
			r.Patient.Name,
			date,
			strconv.FormatFloat(r.TotalPrice, 'f', -1, 64),
		}, ","))
	}
	_, err := io.WriteString(w, strings.Join(rows, "\n"))
	return err
}
