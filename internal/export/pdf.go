package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 18.0
	pdfLineHeight = 5.0
)

// PDF renders content as an A4 document with core fonts. Text is translated to cp1252, so
// characters outside that code page are dropped.
func PDF(c Content, title string, design Design) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("ATS Resume Analyzer", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	w.r, w.g, w.b = design.rgb()

	if !c.IsStructured() {
		w.heading(title)
		w.paragraph(c.Text)
		return w.bytes()
	}

	name := c.PersonalInfo.FullName
	if name == "" {
		name = title
	}
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(w.r, w.g, w.b)
	pdf.CellFormat(0, 10, w.tr(name), "", 1, "L", false, 0, "")
	if contact := c.ContactLine(); contact != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(0, pdfLineHeight, w.tr(contact), "", 1, "L", false, 0, "")
	}

	if c.Summary != "" {
		w.heading("Professional Summary")
		w.paragraph(c.Summary)
	}
	if len(c.Experience) > 0 {
		w.heading("Experience")
		for _, exp := range c.Experience {
			w.entry(joinNonEmpty(" - ", exp.Title, exp.Company), joinNonEmpty(" | ", exp.Location, exp.Period()))
			w.paragraph(exp.Description)
			for _, h := range exp.Highlights {
				w.bullet(h)
			}
		}
	}
	if len(c.Education) > 0 {
		w.heading("Education")
		for _, edu := range c.Education {
			sub := joinNonEmpty(" | ", edu.Location, edu.Period())
			if edu.GPA != "" {
				sub = joinNonEmpty(" | ", sub, "GPA "+edu.GPA)
			}
			w.entry(joinNonEmpty(" - ", edu.Degree, edu.Institution), sub)
		}
	}
	if len(c.Skills) > 0 {
		w.heading("Skills")
		w.paragraph(strings.Join(c.Skills, ", "))
	}
	if len(c.Certifications) > 0 {
		w.heading("Certifications")
		for _, cert := range c.Certifications {
			w.bullet(joinNonEmpty(" - ", cert.Name, cert.Issuer, cert.Date))
		}
	}
	if len(c.Projects) > 0 {
		w.heading("Projects")
		for _, p := range c.Projects {
			w.entry(p.Name, strings.Join(p.Technologies, ", "))
			w.paragraph(p.Description)
			if p.URL != "" {
				w.paragraph(p.URL)
			}
		}
	}
	return w.bytes()
}

type pdfWriter struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	r, g, b int
}

func (w *pdfWriter) heading(text string) {
	w.pdf.Ln(4)
	w.pdf.SetFont("Helvetica", "B", 12)
	w.pdf.SetTextColor(w.r, w.g, w.b)
	w.pdf.CellFormat(0, 7, w.tr(strings.ToUpper(text)), "", 1, "L", false, 0, "")
	pageW, _ := w.pdf.GetPageSize()
	y := w.pdf.GetY()
	w.pdf.SetDrawColor(w.r, w.g, w.b)
	w.pdf.Line(pdfMargin, y, pageW-pdfMargin, y)
	w.pdf.Ln(2)
}

func (w *pdfWriter) entry(title, sub string) {
	if title != "" {
		w.pdf.SetFont("Helvetica", "B", 10.5)
		w.pdf.SetTextColor(20, 20, 20)
		w.pdf.CellFormat(0, 6, w.tr(title), "", 1, "L", false, 0, "")
	}
	if sub != "" {
		w.pdf.SetFont("Helvetica", "I", 9)
		w.pdf.SetTextColor(90, 90, 90)
		w.pdf.CellFormat(0, pdfLineHeight, w.tr(sub), "", 1, "L", false, 0, "")
	}
}

func (w *pdfWriter) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.SetTextColor(30, 30, 30)
	w.pdf.MultiCell(0, pdfLineHeight, w.tr(text), "", "L", false)
}

func (w *pdfWriter) bullet(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.SetTextColor(30, 30, 30)
	w.pdf.SetX(pdfMargin + 3)
	w.pdf.MultiCell(0, pdfLineHeight, w.tr("- "+text), "", "L", false)
}

func (w *pdfWriter) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
