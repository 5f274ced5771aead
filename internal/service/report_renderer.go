package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"brevity-server/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

const (
	reportFont       = "Arial"
	reportMargin     = 25.0
	bodyFontSize     = 11.0
	bodyLineHeight   = 8.0
	bodyIndent       = 5.0
	footerOffset     = 30.0
	sectionBreakRoom = 80.0
)

type headingStyle struct {
	size    float64
	spacing float64
}

var headingStyles = map[int]headingStyle{
	1: {size: 24, spacing: 15},
	2: {size: 20, spacing: 12},
	3: {size: 16, spacing: 10},
	4: {size: 14, spacing: 8},
	5: {size: 12, spacing: 6},
	6: {size: 11, spacing: 5},
}

// FPDFRenderer lays out a themed summary report with go-pdf/fpdf. Section
// bodies are parsed with goldmark, so **bold**, *italic* and # headings
// come through as styled text.
type FPDFRenderer struct {
	logger domain.Logger
	md     goldmark.Markdown
}

// NewFPDFRenderer creates a new report renderer
func NewFPDFRenderer(logger domain.Logger) *FPDFRenderer {
	return &FPDFRenderer{
		logger: logger,
		md:     goldmark.New(),
	}
}

// Render returns the report as PDF bytes
func (r *FPDFRenderer) Render(input domain.ReportInput) ([]byte, error) {
	theme := input.Theme
	generatedAt := input.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	pdf.SetAutoPageBreak(true, footerOffset+10)
	pdf.SetTitle(input.Title, true)
	pdf.SetCreator(input.AppName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	write := func(s string) string { return tr(cleanReportText(s)) }

	pdf.SetHeaderFunc(func() {
		w, h := pdf.GetPageSize()
		setFill(pdf, theme.Background)
		pdf.Rect(0, 0, w, h, "F")
		setFill(pdf, theme.Accent)
		pdf.Rect(0, 0, w, 3, "F")
	})

	pdf.SetFooterFunc(func() {
		w, h := pdf.GetPageSize()
		y := h - footerOffset
		setDraw(pdf, theme.Line)
		pdf.Line(20, y-5, w-20, y-5)

		pdf.SetY(y)
		pdf.SetFont(reportFont, "I", 9)
		setText(pdf, theme.Text)
		footer := fmt.Sprintf("Generated by %s on %s", input.AppName, generatedAt.Format("January 2, 2006 at 3:04 PM"))
		pdf.CellFormat(0, 5, write(footer), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "L", false, 0, "")
	})

	pdf.AddPage()

	r.writeHeading(pdf, theme, 1, write(input.Title))
	if input.Subtitle != "" {
		r.writeHeading(pdf, theme, 2, write(input.Subtitle))
	}
	if input.TotalPages > 0 {
		pdf.SetFont(reportFont, "I", 10)
		setText(pdf, theme.Text)
		pdf.Write(bodyLineHeight, fmt.Sprintf("Total Pages: %d", input.TotalPages))
		pdf.Ln(bodyLineHeight)
	}
	pdf.Ln(10)

	for _, section := range input.Sections {
		_, h := pdf.GetPageSize()
		if pdf.GetY() > h-sectionBreakRoom {
			pdf.AddPage()
		}
		r.writeSectionHeader(pdf, theme, write(section.Header))
		pdf.Ln(5)

		if err := r.writeBody(pdf, theme, write, section.Body); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
		}
		pdf.Ln(15)
	}

	if err := pdf.Error(); err != nil {
		r.logger.Error("Failed to lay out report", err, "title", input.Title)
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error("Failed to generate PDF output", err, "title", input.Title)
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
	}

	r.logger.Debug("Report rendered", "sections", len(input.Sections), "theme", theme.Key, "pdf_size", buf.Len())
	return buf.Bytes(), nil
}

func (r *FPDFRenderer) writeHeading(pdf *fpdf.Fpdf, theme domain.Theme, level int, s string) {
	style := headingStyles[clampHeading(level)]
	pdf.SetFont(reportFont, "B", style.size)
	setText(pdf, theme.Header)
	pdf.Ln(style.spacing)
	pdf.Write(style.spacing, s)
	pdf.Ln(style.spacing)
	setText(pdf, theme.Text)
}

// writeSectionHeader draws the accent marker and band, then the header text inside the band.
func (r *FPDFRenderer) writeSectionHeader(pdf *fpdf.Fpdf, theme domain.Theme, s string) {
	w, _ := pdf.GetPageSize()
	y := pdf.GetY()

	setFill(pdf, theme.Accent)
	pdf.Rect(20, y, 4, 8, "F")
	setFill(pdf, theme.Secondary)
	pdf.Rect(24, y, w-44, 8, "F")

	pdf.SetFont(reportFont, "B", 12)
	setText(pdf, theme.Header)
	pdf.SetXY(27, y)
	pdf.CellFormat(w-50, 8, s, "", 1, "L", false, 0, "")
	setText(pdf, theme.Text)
}

func (r *FPDFRenderer) writeBody(pdf *fpdf.Fpdf, theme domain.Theme, write func(string) string, body string) error {
	source := []byte(body)
	doc := r.md.Parser().Parse(text.NewReader(source))

	pdf.SetLeftMargin(reportMargin + bodyIndent)
	pdf.SetX(reportMargin + bodyIndent)
	defer pdf.SetLeftMargin(reportMargin)

	mw := &markupWriter{
		pdf:        pdf,
		source:     source,
		write:      write,
		theme:      theme,
		lineHeight: bodyLineHeight,
		size:       bodyFontSize,
	}
	mw.updateFont()
	setText(pdf, theme.Text)
	return ast.Walk(doc, mw.walk)
}

type markupWriter struct {
	pdf        *fpdf.Fpdf
	source     []byte
	write      func(string) string
	theme      domain.Theme
	lineHeight float64
	size       float64
	bold       bool
	italic     bool
	inHeading  bool
	listLevel  int
}

func (w *markupWriter) updateFont() {
	style := ""
	if w.bold || w.inHeading {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(reportFont, style, w.size)
}

func (w *markupWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		style := headingStyles[clampHeading(n.(*ast.Heading).Level)]
		if entering {
			w.inHeading = true
			w.size = style.size
			w.lineHeight = style.spacing
			setText(w.pdf, w.theme.Header)
			w.pdf.Ln(style.spacing)
		} else {
			w.pdf.Ln(style.spacing)
			w.inHeading = false
			w.size = bodyFontSize
			w.lineHeight = bodyLineHeight
			setText(w.pdf, w.theme.Text)
		}
		w.updateFont()
	case ast.KindParagraph, ast.KindTextBlock:
		if !entering {
			w.pdf.Ln(w.lineHeight)
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			w.pdf.Write(w.lineHeight, w.write(string(t.Segment.Value(w.source))))
			if t.SoftLineBreak() || t.HardLineBreak() {
				w.pdf.Ln(w.lineHeight)
			}
		}
	case ast.KindString:
		if entering {
			w.pdf.Write(w.lineHeight, w.write(string(n.(*ast.String).Value)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()
	case ast.KindList:
		if entering {
			w.listLevel++
		} else {
			w.listLevel--
			w.pdf.Ln(2)
		}
	case ast.KindListItem:
		if entering {
			w.pdf.SetX(reportMargin + bodyIndent*float64(w.listLevel+1))
			w.pdf.Write(w.lineHeight, "- ")
		}
	case ast.KindCodeBlock, ast.KindFencedCodeBlock:
		if entering {
			w.writeLines(n.Lines())
			w.pdf.Ln(2)
		}
	case ast.KindHTMLBlock:
		if entering {
			block := n.(*ast.HTMLBlock)
			w.writeLines(block.Lines())
			if block.HasClosure() {
				w.writeLine(block.ClosureLine.Value(w.source))
			}
		}
	case ast.KindAutoLink:
		if entering {
			w.pdf.Write(w.lineHeight, w.write(string(n.(*ast.AutoLink).URL(w.source))))
		}
	case ast.KindRawHTML:
		if entering {
			segs := n.(*ast.RawHTML).Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				w.pdf.Write(w.lineHeight, w.write(string(seg.Value(w.source))))
			}
		}
	case ast.KindThematicBreak:
		if entering {
			pw, _ := w.pdf.GetPageSize()
			setDraw(w.pdf, w.theme.Line)
			w.pdf.Line(reportMargin, w.pdf.GetY(), pw-reportMargin, w.pdf.GetY())
			w.pdf.Ln(4)
		}
	}
	return ast.WalkContinue, nil
}

// writeLines prints block content that goldmark keeps as raw line segments
// instead of child nodes.
func (w *markupWriter) writeLines(lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.writeLine(seg.Value(w.source))
	}
}

func (w *markupWriter) writeLine(line []byte) {
	w.pdf.Write(w.lineHeight, w.write(strings.TrimRight(string(line), "\r\n")))
	w.pdf.Ln(w.lineHeight)
}

func clampHeading(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

var typographicReplacer = strings.NewReplacer(
	"—", "-",
	"–", "-",
	"…", "...",
	"“", "\"",
	"”", "\"",
	"‘", "'",
	"’", "'",
)

// cleanReportText normalizes to NFKC, flattens typographic punctuation and
// drops runes that are not letters, digits, spaces, punctuation or symbols.
func cleanReportText(s string) string {
	s = typographicReplacer.Replace(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r),
			unicode.IsPunct(r), unicode.IsSymbol(r):
			return r
		}
		return -1
	}, s)
}

func setFill(pdf *fpdf.Fpdf, c domain.RGB) { pdf.SetFillColor(c.R, c.G, c.B) }
func setDraw(pdf *fpdf.Fpdf, c domain.RGB) { pdf.SetDrawColor(c.R, c.G, c.B) }
func setText(pdf *fpdf.Fpdf, c domain.RGB) { pdf.SetTextColor(c.R, c.G, c.B) }
