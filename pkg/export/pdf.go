package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

const (
	pageMargin   = 15.0
	bodyFontSize = 10.0
	lineHeight   = 5.0
	cellPadding  = 1.5
)

// PDFExporter renders parsed lesson nodes into a paginated A4 document.
type PDFExporter struct {
	Author string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Author: "Lesson Planner"}
}

// Render lays out the nodes exactly as the preview classifies them.
func (e *PDFExporter) Render(title string, nodes []markdown.Node) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(e.Author, true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r := &pdfRenderer{pdf: pdf, tr: tr}
	if title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.SetTextColor(30, 58, 138)
		pdf.MultiCell(0, 8, tr(title), "", "C", false)
		pdf.Ln(4)
	}
	for _, n := range nodes {
		r.node(n)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("layout pdf: %w", pdf.Error())
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// PDFFile renders lesson content into a downloadable PDF.
func (e *PDFExporter) PDFFile(subject, content string) (File, error) {
	payload, err := e.Render(subject, markdown.Parse(content))
	if err != nil {
		return File{}, err
	}
	return File{Name: Filename(subject, ".pdf"), ContentType: ContentTypePDF, Payload: payload}, nil
}

type pdfRenderer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (r *pdfRenderer) node(n markdown.Node) {
	pdf := r.pdf
	pdf.SetTextColor(15, 23, 42)
	switch n.Kind {
	case markdown.KindHeading:
		size := 13.0
		if n.Level == 3 {
			size = 11.5
		}
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", size)
		pdf.SetTextColor(30, 58, 138)
		pdf.MultiCell(0, size*0.5, r.tr(markdown.PlainText(n.Spans)), "", "L", false)
		pdf.Ln(1)
	case markdown.KindList:
		left, _, _, _ := pdf.GetMargins()
		for _, item := range n.Items {
			pdf.SetX(left + 2)
			pdf.SetFont("Arial", "", bodyFontSize)
			pdf.Write(lineHeight, r.tr("- "))
			r.spans(item)
			pdf.Ln(lineHeight)
		}
	case markdown.KindTable:
		r.table(n.Table)
	case markdown.KindSchema:
		r.schema(n.Text)
	case markdown.KindParagraph:
		r.spans(n.Spans)
		pdf.Ln(lineHeight)
	case markdown.KindBreak:
		pdf.Ln(lineHeight * 0.6)
	}
}

func (r *pdfRenderer) spans(spans []markdown.Span) {
	for _, s := range spans {
		style := ""
		if s.Bold {
			style = "B"
		}
		r.pdf.SetFont("Arial", style, bodyFontSize)
		r.pdf.Write(lineHeight, r.tr(s.Text))
	}
	r.pdf.SetFont("Arial", "", bodyFontSize)
}

func (r *pdfRenderer) schema(text string) {
	pdf := r.pdf
	pdf.Ln(1)
	pdf.SetFillColor(238, 242, 255)
	pdf.SetDrawColor(99, 102, 241)
	pdf.SetFont("Arial", "B", bodyFontSize)
	pdf.SetTextColor(67, 56, 202)
	pdf.CellFormat(0, lineHeight+1, r.tr("Schema"), "LTR", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", bodyFontSize)
	pdf.SetTextColor(15, 23, 42)
	pdf.MultiCell(0, lineHeight, r.tr(text), "LBR", "L", true)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Ln(2)
}

func (r *pdfRenderer) table(t *markdown.Table) {
	pdf := r.pdf
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(cols)

	pdf.Ln(1)
	pdf.SetDrawColor(100, 116, 139)
	pdf.SetFillColor(226, 232, 240)
	r.row(t.Header, cols, colW, true)
	for _, row := range t.Rows {
		r.row(row, cols, colW, false)
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.Ln(2)
}

func (r *pdfRenderer) row(cells []markdown.Cell, cols int, colW float64, header bool) {
	pdf := r.pdf
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont("Arial", style, bodyFontSize-1)

	texts := make([]string, cols)
	maxLines := 1
	for i := 0; i < cols; i++ {
		if i < len(cells) {
			texts[i] = r.tr(cells[i].Plain())
		}
		if n := len(pdf.SplitLines([]byte(texts[i]), colW-2*cellPadding)); n > maxLines {
			maxLines = n
		}
	}
	rowH := float64(maxLines)*lineHeight + 2*cellPadding

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+rowH > pageH-bottom {
		pdf.AddPage()
	}

	x, y := pdf.GetXY()
	for i, text := range texts {
		cx := x + float64(i)*colW
		fill := "D"
		if header {
			fill = "FD"
		}
		pdf.Rect(cx, y, colW, rowH, fill)
		pdf.SetXY(cx+cellPadding, y+cellPadding)
		pdf.MultiCell(colW-2*cellPadding, lineHeight, text, "", "L", false)
	}
	pdf.SetXY(x, y+rowH)
}
