package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RosterRow is one line of an instance staffing roster.
type RosterRow struct {
	FullName   string
	Email      string
	Status     string
	AssignedAt string
}

// RosterDocument is the printable roster for one activity instance.
type RosterDocument struct {
	ActivityName string
	CourseName   string
	Slot         string
	Rows         []RosterRow
}

var rosterColumns = []string{"Instructor", "Email", "Status", "Assigned At"}

// RenderCSV produces CSV bytes for the roster.
func RenderCSV(doc RosterDocument) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(rosterColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range doc.Rows {
		if err := w.Write([]string{row.FullName, row.Email, row.Status, row.AssignedAt}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF produces a tabular PDF for the roster.
func RenderPDF(doc RosterDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, doc.ActivityName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, doc.CourseName, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, doc.Slot, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	widths := []float64{55, 65, 30, 40}
	pdf.SetFont("Arial", "B", 10)
	for i, col := range rosterColumns {
		pdf.CellFormat(widths[i], 8, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Rows {
		cells := []string{row.FullName, row.Email, row.Status, row.AssignedAt}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
