package report

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"festreg/internal/store"
)

const (
	titleLine1 = "BEL COMPOSITE PU COLLEGE"
	titleLine2 = "CULTURAL FEST 2025"

	FileName = "Cultural_Fest_2025_Data.pdf"
)

const (
	left   = 14.0
	wSl    = 20.0
	wClass = 40.0
	rowH   = 7.0
	lineH  = 5.0
)

// Build renders the roster grouped by event: a shaded band per event
// followed by a grid of sequence number, class and the comma-joined
// names. Group order is the first-encounter order the store produced.
func Build(groups []store.EventGroup) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	wNames := pageW - 2*left - wSl - wClass

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetY(12)
	pdf.CellFormat(0, 8, titleLine1, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, titleLine2, "", 1, "C", false, 0, "")
	pdf.SetLineWidth(0.5)
	y := pdf.GetY() + 2
	pdf.Line(10, y, pageW-10, y)
	pdf.SetY(y + 8)

	for _, g := range groups {
		if pdf.GetY() > 250 {
			pdf.AddPage()
			pdf.SetY(20)
		}

		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.Rect(left, pdf.GetY(), pageW-2*left, 8, "F")
		pdf.SetXY(left+2, pdf.GetY()+1.5)
		pdf.CellFormat(pageW-2*left-4, 5, strings.ToUpper(g.Event), "", 1, "L", false, 0, "")
		pdf.SetY(pdf.GetY() + 3)

		pdf.SetX(left)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(41, 37, 36)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(wSl, rowH, "Sl.no", "1", 0, "C", true, 0, "")
		pdf.CellFormat(wClass, rowH, "Class", "1", 0, "C", true, 0, "")
		pdf.CellFormat(wNames, rowH, "Names of the Team Members", "1", 1, "C", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)

		for i, entry := range g.Entries {
			names := strings.Join(entry.Names, ", ")
			lines := pdf.SplitText(names, wNames-2)
			h := float64(len(lines)) * lineH
			if h < rowH {
				h = rowH
			}
			if pdf.GetY()+h > 280 {
				pdf.AddPage()
				pdf.SetY(20)
			}
			pdf.SetX(left)
			pdf.CellFormat(wSl, h, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(wClass, h, entry.Class, "1", 0, "C", false, 0, "")
			// MultiCell keeps the row heights aligned when names wrap
			perLine := h
			if len(lines) > 0 {
				perLine = h / float64(len(lines))
			}
			pdf.MultiCell(wNames, perLine, names, "1", "L", false)
		}
		pdf.SetY(pdf.GetY() + 10)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
