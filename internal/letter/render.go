package letter

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
)

// Page geometry in points (US Letter).
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	pageMargin = 56.0
	lineHeight = 16.0
	bullet     = "•"
)

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	// y is the baseline of the next line, measured from the top.
	y float64
}

// Render lays the sections out as a PDF: bold header and signature,
// wrapped paragraphs, bulleted reminders and attachments, and a small
// disclaimer. Pages are added as lines run past the bottom margin.
func Render(s Sections) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle("Property Tax Appeal Letter", true)
	pdf.AddPage()

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), y: pageMargin}

	r.paragraph(s.Header, "B", 12)
	r.paragraph(s.Salutation, "", 12)
	for _, p := range s.Body {
		r.paragraph(p, "", 12)
	}
	r.paragraph(s.Closing, "", 12)
	r.paragraph(s.Signature, "B", 12)

	if len(s.FilingReminders) > 0 {
		r.paragraph("Key filing steps:", "B", 12)
		for _, item := range s.FilingReminders {
			r.paragraph(bullet+" "+item, "", 11)
		}
	}
	if len(s.Attachments) > 0 {
		r.paragraph("Suggested attachments:", "B", 12)
		for _, item := range s.Attachments {
			r.paragraph(bullet+" "+item, "", 11)
		}
	}
	r.paragraph(s.Disclaimer, "", 10)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "letter: render pdf")
	}
	return buf.Bytes(), nil
}

func (r *renderer) paragraph(text, style string, size float64) {
	r.pdf.SetFont("Times", style, size)
	r.lines(r.wrap(r.tr(text)))
}

func (r *renderer) lines(lines []string) {
	for _, line := range lines {
		if r.y >= pageHeight-pageMargin-lineHeight {
			r.pdf.AddPage()
			r.y = pageMargin
		}
		r.pdf.Text(pageMargin, r.y, line)
		r.y += lineHeight
	}
	r.y += lineHeight / 2
}

// wrap breaks text into lines that fit the usable width at the current
// font. A single word wider than the line stays on its own line.
func (r *renderer) wrap(text string) []string {
	maxWidth := pageWidth - 2*pageMargin
	var out []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if r.pdf.GetStringWidth(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current)
		}
		current = word
	}
	if current != "" {
		out = append(out, current)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
