// Package report lays out a submitted inspection as a paginated document and
// renders it to PDF. Layout and rendering are separate so that pagination can
// be tested without producing a file.
package report

// All lengths are millimetres, font sizes are points.
const ptToMM = 25.4 / 72

type Style string

const (
	Regular    Style = ""
	Bold       Style = "B"
	Italic     Style = "I"
	BoldItalic Style = "BI"
)

type Font struct {
	Family string
	Style  Style
	Size   float64
}

// LineHeight is the vertical advance of one line of text in this font.
func (f Font) LineHeight() float64 {
	return f.Size * ptToMM * 1.35
}

type Color struct {
	R, G, B uint8
}

var (
	black     = Color{33, 33, 33}
	white     = Color{255, 255, 255}
	muted     = Color{97, 97, 97}
	brand     = Color{21, 67, 96}
	rowShade  = Color{242, 244, 247}
	green     = Color{46, 125, 50}
	red       = Color{198, 40, 40}
	grey      = Color{117, 117, 117}
	amber     = Color{230, 145, 0}
	lightRule = Color{200, 204, 210}
)

type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Element is one positioned piece of a page.
type Element interface {
	Bounds() (x, y, w, h float64)
}

// Text is a single line of text. It never wraps; the layout engine has
// already broken long text into lines.
type Text struct {
	X, Y, W, H float64
	Font       Font
	Color      Color
	Align      Align
	Value      string
}

// Box is a filled rectangle, optionally outlined.
type Box struct {
	X, Y, W, H float64
	Fill       Color
	Outline    bool
}

// Picture is an embedded image. Name is unique within a document; Label is
// the file name shown if the image cannot be embedded.
type Picture struct {
	X, Y, W, H float64
	Name       string
	Label      string
	Format     string
	Data       []byte
}

func (t Text) Bounds() (float64, float64, float64, float64)    { return t.X, t.Y, t.W, t.H }
func (b Box) Bounds() (float64, float64, float64, float64)     { return b.X, b.Y, b.W, b.H }
func (p Picture) Bounds() (float64, float64, float64, float64) { return p.X, p.Y, p.W, p.H }

// Page holds the content of one page. Footer elements are stamped after the
// whole document has been laid out, once the page count is known.
type Page struct {
	Number   int
	Elements []Element
	Footer   []Element
}

// Texts returns the text lines of the page body in layout order.
func (p *Page) Texts() []string {
	var out []string
	for _, e := range p.Elements {
		if t, ok := e.(Text); ok {
			out = append(out, t.Value)
		}
	}
	return out
}

type Document struct {
	Title  string
	Width  float64
	Height float64
	Pages  []*Page
	// Badge is the verdict label printed on the report.
	Badge string
}

// Measurer reports the printed width of a string.
type Measurer interface {
	Width(f Font, s string) float64
}

// Options controls page geometry and photo sizing.
type Options struct {
	Title          string
	PageWidth      float64
	PageHeight     float64
	Margin         float64
	FooterHeight   float64
	MaxImageWidth  float64
	MaxImageHeight float64
	// ImageDPI converts pixel sizes to millimetres. Images are never
	// enlarged past their natural size at this resolution.
	ImageDPI float64
}

// DefaultOptions is A4 portrait.
func DefaultOptions() Options {
	return Options{
		Title:          "PPE Inspection Report",
		PageWidth:      210,
		PageHeight:     297,
		Margin:         15,
		FooterHeight:   12,
		MaxImageWidth:  120,
		MaxImageHeight: 90,
		ImageDPI:       96,
	}
}

func (o Options) contentWidth() float64 {
	return o.PageWidth - 2*o.Margin
}

// bottom is the lowest y the body may reach.
func (o Options) bottom() float64 {
	return o.PageHeight - o.Margin - o.FooterHeight
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.PageWidth <= 0 || o.PageHeight <= 0 {
		o.PageWidth, o.PageHeight = d.PageWidth, d.PageHeight
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	if o.FooterHeight <= 0 {
		o.FooterHeight = d.FooterHeight
	}
	if o.MaxImageWidth <= 0 || o.MaxImageWidth > o.contentWidth() {
		o.MaxImageWidth = min(d.MaxImageWidth, o.contentWidth())
	}
	if o.MaxImageHeight <= 0 {
		o.MaxImageHeight = d.MaxImageHeight
	}
	if o.ImageDPI <= 0 {
		o.ImageDPI = d.ImageDPI
	}
	return o
}
