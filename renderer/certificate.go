package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/anjiri1684/learnhub/models"
	"github.com/go-pdf/fpdf"
)

// Page geometry in points, letter landscape.
const (
	pageWidth  = 792.0
	pageHeight = 612.0
	margin     = 50.0

	outerBorderInset = 20.0
	outerBorderWidth = 8.0
	innerBorderInset = 32.0
	innerBorderWidth = 1.0

	titleBlockTop = 80.0
	bodyTop       = 180.0
	textBoxWidth  = 520.0
	maxTitleLines = 2
	maxDescLines  = 4
	descMaxSize   = 12.0
	descMinSize   = 8.0

	// Descriptions at or above this many characters are left off the page.
	DescriptionLimit = 150

	footerOffset    = 180.0
	footerWidth     = 260.0
	signatureOffset = 100.0
	signatureWidth  = 160.0
	signatureInset  = 100.0
)

type rgb struct{ r, g, b int }

var (
	backgroundColor = rgb{253, 251, 245}
	accentColor     = rgb{30, 64, 175}
	inkColor        = rgb{31, 41, 55}
	mutedColor      = rgb{107, 114, 128}
	frameColor      = rgb{156, 163, 175}
)

var ErrIncompleteInput = errors.New("certificate, track and profile are required")

type Input struct {
	Certificate *models.Certificate
	Track       *models.Track
	Profile     *models.Profile
}

func (in Input) validate() error {
	if in.Certificate == nil || in.Track == nil || in.Profile == nil {
		return ErrIncompleteInput
	}
	return nil
}

type Options struct {
	IssuerName string
	Tagline    string
	// Compress deflates page streams. Off makes the text greppable.
	Compress bool
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Document is a laid-out certificate. It can be written exactly once.
type Document struct {
	pdf *fpdf.Fpdf
}

func (d *Document) Pages() int {
	return d.pdf.PageCount()
}

func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := d.pdf.Output(cw); err != nil {
		return cw.n, fmt.Errorf("write certificate: %w", err)
	}
	return cw.n, nil
}

// Prepare validates the input and lays out the page. Nothing is written
// anywhere until WriteTo is called, so a failure here leaves the sink untouched.
func (r *Renderer) Prepare(in Input) (*Document, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("L", "pt", "Letter", "")
	r.layout(pdf, in)
	if pdf.Err() {
		return nil, fmt.Errorf("layout certificate: %w", pdf.Error())
	}
	return &Document{pdf: pdf}, nil
}

// Render streams the certificate into w.
func (r *Renderer) Render(w io.Writer, in Input) error {
	doc, err := r.Prepare(in)
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(w)
	return err
}

// RenderBytes returns the whole certificate in memory, for uploads.
func (r *Renderer) RenderBytes(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) layout(pdf *fpdf.Fpdf, in Input) {
	cert, track, profile := in.Certificate, in.Track, in.Profile
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetCompression(r.opts.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(cert.IssuedAt)
	pdf.SetModificationDate(cert.IssuedAt)
	pdf.SetTitle("Certificate of Completion", true)
	pdf.SetSubject(track.Title, true)
	pdf.SetAuthor(r.opts.IssuerName, true)
	pdf.SetCreator("learnhub", true)

	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	setFill(pdf, backgroundColor)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")

	setDraw(pdf, accentColor)
	pdf.SetLineWidth(outerBorderWidth)
	pdf.Rect(outerBorderInset, outerBorderInset, pageWidth-2*outerBorderInset, pageHeight-2*outerBorderInset, "D")
	setDraw(pdf, frameColor)
	pdf.SetLineWidth(innerBorderWidth)
	pdf.Rect(innerBorderInset, innerBorderInset, pageWidth-2*innerBorderInset, pageHeight-2*innerBorderInset, "D")

	contentWidth := pageWidth - 2*margin

	setText(pdf, inkColor)
	pdf.SetFont("Helvetica", "B", 40)
	pdf.SetXY(margin, titleBlockTop)
	pdf.CellFormat(contentWidth, 44, "CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 18)
	pdf.SetX(margin)
	pdf.CellFormat(contentWidth, 24, "OF COMPLETION", "", 1, "C", false, 0, "")

	lineY := pdf.GetY() + 10
	setDraw(pdf, accentColor)
	pdf.SetLineWidth(2)
	pdf.Line(pageWidth/2-50, lineY, pageWidth/2+50, lineY)

	pdf.SetXY(margin, bodyTop)
	setText(pdf, mutedColor)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(contentWidth, 20, "This certifies that", "", 1, "C", false, 0, "")

	name := tr(profile.DisplayName())
	size := fitFontSize(pdf, name, "B", 30, 16, contentWidth-40)
	pdf.SetFont("Helvetica", "B", size)
	setText(pdf, inkColor)
	pdf.SetX(margin)
	pdf.CellFormat(contentWidth, 40, truncate(pdf, name, contentWidth-40), "", 1, "C", false, 0, "")

	setText(pdf, mutedColor)
	pdf.SetFont("Helvetica", "", 14)
	pdf.SetX(margin)
	pdf.CellFormat(contentWidth, 24, "has successfully completed", "", 1, "C", false, 0, "")

	boxX := (pageWidth - textBoxWidth) / 2
	setText(pdf, accentColor)
	pdf.SetFont("Helvetica", "B", 22)
	for _, line := range wrap(pdf, tr(track.Title), textBoxWidth, maxTitleLines) {
		pdf.SetX(boxX)
		pdf.CellFormat(textBoxWidth, 28, line, "", 1, "C", false, 0, "")
	}

	if desc := track.DescriptionText(); desc != "" && IncludesDescription(desc) {
		pdf.Ln(6)
		setText(pdf, mutedColor)
		size, lines := fitLines(pdf, tr(desc), "I", descMaxSize, descMinSize, textBoxWidth, maxDescLines)
		pdf.SetFont("Helvetica", "I", size)
		for _, line := range lines {
			pdf.SetX(boxX)
			pdf.CellFormat(textBoxWidth, size+4, line, "", 1, "C", false, 0, "")
		}
	}

	r.footer(pdf, tr, cert)
	signatures(pdf)
}

func (r *Renderer) footer(pdf *fpdf.Fpdf, tr func(string) string, cert *models.Certificate) {
	x := (pageWidth - footerWidth) / 2
	pdf.SetXY(x, pageHeight-footerOffset)

	setText(pdf, inkColor)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(footerWidth, 16, "Issued on "+cert.IssuedAt.UTC().Format("January 2, 2006"), "", 1, "C", false, 0, "")

	pdf.SetX(x)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(footerWidth, 16, "Verification Code: "+cert.VerificationCode, "", 1, "C", false, 0, "")

	pdf.SetX(x)
	pdf.CellFormat(footerWidth, 16, truncate(pdf, tr(r.opts.IssuerName), footerWidth), "", 1, "C", false, 0, "")

	setText(pdf, mutedColor)
	pdf.SetX(x)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(footerWidth, 14, truncate(pdf, tr(r.opts.Tagline), footerWidth), "", 1, "C", false, 0, "")
}

func signatures(pdf *fpdf.Fpdf) {
	y := pageHeight - signatureOffset
	left := signatureInset
	right := pageWidth - signatureInset - signatureWidth

	setDraw(pdf, inkColor)
	pdf.SetLineWidth(1)
	setText(pdf, mutedColor)
	pdf.SetFont("Helvetica", "", 10)
	for _, sig := range []struct {
		x       float64
		caption string
	}{
		{left, "Instructor Signature"},
		{right, "Date"},
	} {
		pdf.Line(sig.x, y, sig.x+signatureWidth, y)
		pdf.SetXY(sig.x, y+6)
		pdf.CellFormat(signatureWidth, 14, sig.caption, "", 0, "C", false, 0, "")
	}
}

// IncludesDescription reports whether desc fits on the page.
func IncludesDescription(desc string) bool {
	return utf8.RuneCountInString(desc) < DescriptionLimit
}

func fitFontSize(pdf *fpdf.Fpdf, s, style string, max, min, width float64) float64 {
	size := max
	for size > min {
		pdf.SetFont("Helvetica", style, size)
		if pdf.GetStringWidth(s) <= width {
			return size
		}
		size -= 2
	}
	return min
}

// fitLines picks the largest font size at which s wraps into maxLines
// without a cut. Below min the text is wrapped at min and cut.
func fitLines(pdf *fpdf.Fpdf, s, style string, max, min, width float64, maxLines int) (float64, []string) {
	for size := max; size >= min; size-- {
		pdf.SetFont("Helvetica", style, size)
		if lines := wrapAll(pdf, s, width); len(lines) <= maxLines {
			return size, lines
		}
	}
	pdf.SetFont("Helvetica", style, min)
	return min, wrap(pdf, s, width, maxLines)
}

// wrap breaks s into at most maxLines lines of the given width, marking a cut
// with an ellipsis.
func wrap(pdf *fpdf.Fpdf, s string, width float64, maxLines int) []string {
	lines := wrapAll(pdf, s, width)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = truncate(pdf, lines[maxLines-1]+"...", width)
	}
	return lines
}

// wrapAll breaks s on spaces, splitting words wider than a line. s is cp1252,
// so widths are measured per byte.
func wrapAll(pdf *fpdf.Fpdf, s string, width float64) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(s) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if pdf.GetStringWidth(candidate) <= width {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		for pdf.GetStringWidth(word) > width {
			cut := len(word)
			for cut > 1 && pdf.GetStringWidth(word[:cut]) > width {
				cut--
			}
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	const ellipsis = "..."
	// s is single-byte cp1252 after translation.
	for len(s) > 0 && pdf.GetStringWidth(s+ellipsis) > width {
		s = s[:len(s)-1]
	}
	return s + ellipsis
}

func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
