package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// pdfMeasurer measures text with the same core fonts and code page the
// renderer prints with.
type pdfMeasurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewMeasurer returns a Measurer backed by the PDF core font metrics.
func NewMeasurer() Measurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &pdfMeasurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *pdfMeasurer) Width(f Font, s string) float64 {
	m.pdf.SetFont(f.Family, string(f.Style), f.Size)
	return m.pdf.GetStringWidth(m.tr(s))
}

type pdfWriter struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	registered map[string]bool
}

// WritePDF renders doc. Page bodies are drawn first; footers are drawn in a
// second pass over the finished pages.
func WritePDF(doc *Document, w io.Writer) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: doc.Width, Ht: doc.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCellMargin(0)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("ppe_inspection", true)
	pdf.SetCreationDate(time.Now())

	pw := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), registered: map[string]bool{}}
	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, e := range page.Elements {
			pw.draw(e)
		}
	}
	for i, page := range doc.Pages {
		pdf.SetPage(i + 1)
		for _, e := range page.Footer {
			pw.draw(e)
		}
	}
	if pdf.Err() {
		return fmt.Errorf("render pdf: %w", pdf.Error())
	}
	return pdf.Output(w)
}

func (pw *pdfWriter) draw(e Element) {
	switch v := e.(type) {
	case Box:
		pw.pdf.SetFillColor(int(v.Fill.R), int(v.Fill.G), int(v.Fill.B))
		style := "F"
		if v.Outline {
			pw.pdf.SetDrawColor(int(lightRule.R), int(lightRule.G), int(lightRule.B))
			pw.pdf.SetLineWidth(0.2)
			style = "FD"
		}
		pw.pdf.Rect(v.X, v.Y, v.W, v.H, style)
	case Text:
		pw.text(v)
	case Picture:
		pw.picture(v)
	}
}

func (pw *pdfWriter) text(t Text) {
	pw.pdf.SetFont(t.Font.Family, string(t.Font.Style), t.Font.Size)
	pw.pdf.SetTextColor(int(t.Color.R), int(t.Color.G), int(t.Color.B))
	pw.pdf.SetXY(t.X, t.Y)
	pw.pdf.CellFormat(t.W, t.H, pw.tr(t.Value), "", 0, string(t.Align), false, 0, "")
}

// picture embeds an image. An image the PDF writer rejects is retried as a
// baseline JPEG and otherwise replaced by a placeholder line, so one bad
// file never fails the whole report.
func (pw *pdfWriter) picture(p Picture) {
	name, ok := pw.register(p.Name, p.Format, p.Data)
	if !ok {
		if data, err := reencodeJPEG(p.Data); err == nil {
			name, ok = pw.register(p.Name+"-jpg", "JPG", data)
		}
	}
	if !ok {
		pw.text(Text{
			X: p.X, Y: p.Y, W: p.W, H: captionFont.LineHeight(),
			Font: captionFont, Color: red, Align: AlignLeft,
			Value: fmt.Sprintf("[Photo unavailable: %s]", p.Label),
		})
		return
	}
	pw.pdf.ImageOptions(name, p.X, p.Y, p.W, p.H, false, fpdf.ImageOptions{ImageType: formatOr(p.Format)}, 0, "")
}

func (pw *pdfWriter) register(name, format string, data []byte) (string, bool) {
	if pw.registered[name] {
		return name, true
	}
	pw.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: formatOr(format)}, bytes.NewReader(data))
	if pw.pdf.Err() {
		pw.pdf.ClearError()
		return "", false
	}
	pw.registered[name] = true
	return name, true
}

func formatOr(f string) string {
	if f == "" {
		return "JPG"
	}
	return f
}

// Generator fetches the photos of an inspection and writes its PDF report.
type Generator struct {
	Photos      PhotoSource
	Options     Options
	Concurrency int
	// FetchTimeout bounds the photo downloads as a whole. Zero means no
	// limit beyond the caller's context.
	FetchTimeout time.Duration
}

func (g *Generator) Generate(ctx context.Context, in Inspection, w io.Writer) (*Document, error) {
	var photos []Photo
	if len(in.Answer.Photos) > 0 && g.Photos != nil {
		fctx := ctx
		if g.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, g.FetchTimeout)
			defer cancel()
		}
		photos = FetchPhotos(fctx, g.Photos, in.Answer.Photos, g.Concurrency)
	}
	doc := Build(in, photos, NewMeasurer(), g.Options)
	if err := WritePDF(doc, w); err != nil {
		return doc, err
	}
	return doc, nil
}
