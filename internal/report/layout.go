package report

import (
	"strings"
	"unicode/utf8"
)

// flow places blocks top to bottom and starts a new page whenever the next
// block does not fit in the space left.
type flow struct {
	opt  Options
	m    Measurer
	doc  *Document
	page *Page
	y    float64
}

func newFlow(opt Options, m Measurer, title string) *flow {
	f := &flow{opt: opt, m: m, doc: &Document{Title: title, Width: opt.PageWidth, Height: opt.PageHeight}}
	f.newPage()
	return f
}

func (f *flow) newPage() {
	f.page = &Page{Number: len(f.doc.Pages) + 1}
	f.doc.Pages = append(f.doc.Pages, f.page)
	f.y = f.opt.Margin
}

func (f *flow) remaining() float64 {
	return f.opt.bottom() - f.y
}

// ensure starts a new page unless h fits below the cursor. A block taller
// than an empty page is placed anyway.
func (f *flow) ensure(h float64) bool {
	if h <= f.remaining() || f.y == f.opt.Margin {
		return false
	}
	f.newPage()
	return true
}

func (f *flow) add(e Element) {
	f.page.Elements = append(f.page.Elements, e)
}

func (f *flow) space(h float64) {
	if f.y+h > f.opt.bottom() {
		f.newPage()
		return
	}
	f.y += h
}

// paragraph wraps text to the content width. Each line is a block of its
// own, so a long paragraph continues on the next page.
func (f *flow) paragraph(font Font, c Color, text string, indent float64) {
	x := f.opt.Margin + indent
	w := f.opt.contentWidth() - indent
	lh := font.LineHeight()
	for _, line := range wrap(f.m, font, text, w) {
		f.ensure(lh)
		f.add(Text{X: x, Y: f.y, W: w, H: lh, Font: font, Color: c, Align: AlignLeft, Value: line})
		f.y += lh
	}
}

// Column is one column of a table.
type Column struct {
	Title string
	Width float64
	Align Align
}

// Cell is the content of one table cell.
type Cell struct {
	Value string
	Color Color
	Fill  *Color
	Font  *Font
}

const cellPad = 1.5

// table draws a header and rows. Rows are never split; when a row does not
// fit, the table continues on a new page and the header is repeated.
func (f *flow) table(cols []Column, rows [][]Cell, body Font) {
	head := Font{Family: body.Family, Style: Bold, Size: body.Size}
	header := make([]Cell, len(cols))
	for i, c := range cols {
		header[i] = Cell{Value: c.Title, Color: white, Fill: &brand, Font: &head}
	}
	headerH := f.rowHeight(cols, header, head)

	f.ensure(headerH + f.rowHeight(cols, firstRow(rows), body))
	f.row(cols, header, head, headerH)
	for i, r := range rows {
		h := f.rowHeight(cols, r, body)
		if f.ensure(h) {
			f.row(cols, header, head, headerH)
		}
		if i%2 == 1 {
			r = append([]Cell(nil), r...)
			for j := range r {
				if r[j].Fill == nil {
					r[j].Fill = &rowShade
				}
			}
		}
		f.row(cols, r, body, h)
	}
}

func firstRow(rows [][]Cell) []Cell {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func (f *flow) rowHeight(cols []Column, cells []Cell, font Font) float64 {
	lines := 1
	for i, c := range cells {
		if i >= len(cols) {
			break
		}
		cf := font
		if c.Font != nil {
			cf = *c.Font
		}
		if n := len(wrap(f.m, cf, c.Value, cols[i].Width-2*cellPad)); n > lines {
			lines = n
		}
	}
	return float64(lines)*font.LineHeight() + 2*cellPad
}

func (f *flow) row(cols []Column, cells []Cell, font Font, h float64) {
	x := f.opt.Margin
	for i, col := range cols {
		var c Cell
		if i < len(cells) {
			c = cells[i]
		}
		cf := font
		if c.Font != nil {
			cf = *c.Font
		}
		box := Box{X: x, Y: f.y, W: col.Width, H: h, Fill: white, Outline: true}
		if c.Fill != nil {
			box.Fill = *c.Fill
		}
		f.add(box)
		ty := f.y + cellPad
		for _, line := range wrap(f.m, cf, c.Value, col.Width-2*cellPad) {
			f.add(Text{X: x + cellPad, Y: ty, W: col.Width - 2*cellPad, H: cf.LineHeight(), Font: cf, Color: c.Color, Align: col.Align, Value: line})
			ty += cf.LineHeight()
		}
		x += col.Width
	}
	f.y += h
}

// wrap breaks text into lines no wider than w using greedy word wrap.
// Explicit newlines are kept and words wider than a line are split.
func wrap(m Measurer, font Font, text string, w float64) []string {
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			for m.Width(font, word) > w && utf8.RuneCountInString(word) > 1 {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				head, rest := splitToWidth(m, font, word, w)
				out = append(out, head)
				word = rest
			}
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && m.Width(font, candidate) > w {
				out = append(out, line)
				line = word
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

// splitToWidth returns the longest prefix of word that fits in w, at least
// one rune, and the rest.
func splitToWidth(m Measurer, font Font, word string, w float64) (string, string) {
	cut := 0
	for i, r := range word {
		next := i + utf8.RuneLen(r)
		if cut > 0 && m.Width(font, word[:next]) > w {
			break
		}
		cut = next
	}
	return word[:cut], word[cut:]
}

// fitImage scales a px by py image into the box, keeping its aspect ratio
// and never growing it past its natural size at dpi.
func fitImage(px, py int, maxW, maxH, dpi float64) (float64, float64) {
	if px <= 0 || py <= 0 {
		return maxW, maxH
	}
	w := float64(px) * 25.4 / dpi
	h := float64(py) * 25.4 / dpi
	scale := min(1, maxW/w, maxH/h)
	return w * scale, h * scale
}
