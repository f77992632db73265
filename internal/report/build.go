package report

import (
	"fmt"
	"ppe_inspection/internal/form"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Inspection is everything printed on a report.
type Inspection struct {
	Request     form.RequestInfo
	Answer      form.Answer
	SubmittedAt time.Time
	// Inspector is the person who issued the request, when known.
	Inspector string
}

var (
	bodyFont    = Font{Family: "Helvetica", Size: 9.5}
	smallFont   = Font{Family: "Helvetica", Size: 8}
	captionFont = Font{Family: "Helvetica", Style: Italic, Size: 8}
	titleFont   = Font{Family: "Helvetica", Style: Bold, Size: 16}
	headingFont = Font{Family: "Helvetica", Style: Bold, Size: 12}
	subFont     = Font{Family: "Helvetica", Style: Bold, Size: 10.5}
	badgeFont   = Font{Family: "Helvetica", Style: Bold, Size: 14}
)

const dateLayout = "02/01/2006 15:04"

// VerdictLabel is the status text printed for an item.
func VerdictLabel(v form.Verdict) string {
	switch v {
	case form.Approved:
		return "Approved"
	case form.Rejected:
		return "Rejected"
	case form.NotApplicable:
		return "Not applicable"
	}
	return "Unanswered"
}

// VerdictColor separates not applicable from approved so an auditor can
// tell an item that was checked from one that was skipped.
func VerdictColor(v form.Verdict) Color {
	switch v {
	case form.Approved:
		return green
	case form.Rejected:
		return red
	case form.NotApplicable:
		return grey
	}
	return amber
}

func outcomeColor(o form.Outcome) Color {
	switch o {
	case form.OutcomeApproved:
		return green
	case form.OutcomeReproved:
		return red
	}
	return amber
}

// Build lays out the report. Photos that failed to load are printed as a
// placeholder line naming the file.
func Build(in Inspection, photos []Photo, m Measurer, opt Options) *Document {
	opt = opt.withDefaults()
	f := newFlow(opt, m, opt.Title)
	sum := form.Evaluate(in.Answer.Sheet)

	header(f, in)
	metadata(f, in)
	for _, sec := range form.Sections() {
		if sec == form.Identification {
			continue
		}
		section(f, in.Answer.Sheet, sec)
	}
	badge(f, sum)
	photoPages(f, photos)

	stampFooters(f.doc, opt)
	return f.doc
}

func header(f *flow, in Inspection) {
	h := titleFont.LineHeight() + 6
	f.add(Box{X: f.opt.Margin, Y: f.y, W: f.opt.contentWidth(), H: h, Fill: brand})
	f.add(Text{X: f.opt.Margin + 4, Y: f.y + 3, W: f.opt.contentWidth() - 8, H: titleFont.LineHeight(), Font: titleFont, Color: white, Align: AlignLeft, Value: f.doc.Title})
	id := fmt.Sprintf("Request #%d", in.Request.ID)
	f.add(Text{X: f.opt.Margin + 4, Y: f.y + 3, W: f.opt.contentWidth() - 8, H: titleFont.LineHeight(), Font: bodyFont, Color: white, Align: AlignRight, Value: id})
	f.y += h
	f.space(4)
}

func metadata(f *flow, in Inspection) {
	id := in.Answer.Identification
	rows := [][2]string{
		{"Company", in.Request.Company},
		{"Region", id.Region},
		{"Site code", in.Request.SiteCode},
		{"Requested on", formatTime(in.Request.CreatedAt)},
		{"Submitted on", formatTime(in.SubmittedAt)},
		{"Inspector", in.Inspector},
		{"Inspected person", id.FullName},
		{"CPF", id.NationalID},
		{"Role", id.Role},
	}
	cols := []Column{
		{Title: "Field", Width: 50, Align: AlignLeft},
		{Title: "Value", Width: f.opt.contentWidth() - 50, Align: AlignLeft},
	}
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		cells[i] = []Cell{{Value: r[0], Color: muted}, {Value: orDash(r[1]), Color: black}}
	}
	f.table(cols, cells, bodyFont)
	f.space(6)
}

func section(f *flow, s form.Sheet, sec form.Section) {
	f.ensure(headingFont.LineHeight() + bodyFont.LineHeight()*2)
	f.paragraph(headingFont, brand, sec.Title(), 0)
	f.space(1.5)

	switch {
	case sec == form.Conclusion:
		remarks := strings.TrimSpace(s.Conclusion.Remarks)
		if remarks == "" {
			f.paragraph(bodyFont, muted, "No closing remarks.", 0)
		} else {
			f.paragraph(bodyFont, black, s.Conclusion.Remarks, 0)
		}
		f.space(6)
		return
	case sec.Gated() && form.GateOfSection(s, sec) == form.GateNo:
		f.paragraph(bodyFont, grey, notApplicableLine(sec), 0)
		f.space(6)
		return
	case sec.Gated() && form.GateOfSection(s, sec) == form.GateUnanswered:
		f.paragraph(bodyFont, amber, "The applicability question was not answered.", 0)
		f.space(6)
		return
	}

	cols := []Column{
		{Title: "Item", Width: f.opt.contentWidth() - 45, Align: AlignLeft},
		{Title: "Status", Width: 45, Align: AlignCenter},
	}
	items := form.ItemsOf(s, sec)
	rows := make([][]Cell, len(items))
	for i, it := range items {
		rows[i] = []Cell{
			{Value: it.Label, Color: black},
			{Value: VerdictLabel(it.Verdict), Color: VerdictColor(it.Verdict), Font: &Font{Family: bodyFont.Family, Style: Bold, Size: bodyFont.Size}},
		}
	}
	f.table(cols, rows, bodyFont)

	if sec == form.GeneralInspection {
		f.space(1.5)
		decl := "Responsibility declaration: not accepted"
		c := red
		if s.General.Declaration {
			decl, c = "Responsibility declaration: accepted", green
		}
		f.paragraph(bodyFont, c, decl, 0)
	}
	if remarks := form.RemarksOf(s, sec); strings.TrimSpace(remarks) != "" {
		f.space(1.5)
		f.paragraph(subFont, black, "Remarks", 0)
		f.paragraph(bodyFont, black, remarks, 2)
	}
	f.space(6)
}

func notApplicableLine(sec form.Section) string {
	switch sec {
	case form.AerialPPE:
		return "Not applicable: no work at height declared."
	case form.ElectricalPPE:
		return "Not applicable: no electrical work declared."
	}
	return "Not applicable."
}

func badge(f *flow, sum form.Summary) {
	label := sum.Outcome.Label()
	f.doc.Badge = label
	tally := fmt.Sprintf("Approved %d · Rejected %d · Not applicable %d · Unanswered %d · %.0f%% complete",
		sum.Tally.Approved, sum.Tally.Rejected, sum.Tally.NotApplicable, sum.Tally.Unanswered, sum.Completion*100)

	h := badgeFont.LineHeight() + smallFont.LineHeight() + 8
	f.ensure(h)
	f.add(Box{X: f.opt.Margin, Y: f.y, W: f.opt.contentWidth(), H: h, Fill: outcomeColor(sum.Outcome)})
	f.add(Text{X: f.opt.Margin, Y: f.y + 3, W: f.opt.contentWidth(), H: badgeFont.LineHeight(), Font: badgeFont, Color: white, Align: AlignCenter, Value: "Final verdict: " + label})
	f.add(Text{X: f.opt.Margin, Y: f.y + 3 + badgeFont.LineHeight() + 1, W: f.opt.contentWidth(), H: smallFont.LineHeight(), Font: smallFont, Color: white, Align: AlignCenter, Value: tally})
	f.y += h
	f.space(8)
}

// photoPages prints photos grouped by section in section order. An image and
// its caption are one block and always land on the same page.
func photoPages(f *flow, photos []Photo) {
	if len(photos) == 0 {
		return
	}
	bySection := map[form.Section][]Photo{}
	for _, p := range photos {
		bySection[p.Ref.Slot.Section] = append(bySection[p.Ref.Slot.Section], p)
	}

	f.ensure(headingFont.LineHeight() * 3)
	f.paragraph(headingFont, brand, "Photo evidence", 0)
	f.space(2)

	n := 0
	for _, sec := range form.Sections() {
		list := bySection[sec]
		if len(list) == 0 {
			continue
		}
		f.ensure(subFont.LineHeight() + bodyFont.LineHeight())
		f.paragraph(subFont, black, sec.Title(), 0)
		f.space(1.5)
		for _, p := range list {
			n++
			if p.Err != nil {
				f.paragraph(captionFont, red, fmt.Sprintf("[Photo unavailable: %s]", p.Ref.FileName), 0)
				f.space(2)
				continue
			}
			w, h := fitImage(p.Width, p.Height, f.opt.MaxImageWidth, f.opt.MaxImageHeight, f.opt.ImageDPI)
			caption := wrap(f.m, captionFont, Caption(p.Ref), f.opt.contentWidth())
			ch := float64(len(caption)) * captionFont.LineHeight()
			f.ensure(h + 1 + ch)

			x := f.opt.Margin + (f.opt.contentWidth()-w)/2
			f.add(Picture{X: x, Y: f.y, W: w, H: h, Name: fmt.Sprintf("photo-%d-%s", n, p.Ref.ID), Label: p.Ref.FileName, Format: p.Format, Data: p.Data})
			f.y += h + 1
			for _, line := range caption {
				f.add(Text{X: f.opt.Margin, Y: f.y, W: f.opt.contentWidth(), H: captionFont.LineHeight(), Font: captionFont, Color: muted, Align: AlignCenter, Value: line})
				f.y += captionFont.LineHeight()
			}
			f.space(4)
		}
	}
}

// Caption names the question, the file and its size, e.g.
// "Safety helmet: capacete.jpg · 1.2 MB".
func Caption(ref form.PhotoRef) string {
	var b strings.Builder
	if ref.Slot.Question != "" {
		for _, it := range form.ItemsOf(form.Sheet{}, ref.Slot.Section) {
			if it.Key == ref.Slot.Question {
				b.WriteString(it.Label)
				b.WriteString(": ")
			}
		}
	}
	b.WriteString(ref.FileName)
	if ref.SizeBytes > 0 {
		b.WriteString(" · ")
		b.WriteString(humanize.Bytes(uint64(ref.SizeBytes)))
	}
	return b.String()
}

// stampFooters runs once the page count is final.
func stampFooters(doc *Document, opt Options) {
	total := len(doc.Pages)
	y := opt.PageHeight - opt.Margin - smallFont.LineHeight()
	for _, p := range doc.Pages {
		p.Footer = []Element{
			Box{X: opt.Margin, Y: y - 2, W: opt.contentWidth(), H: 0.2, Fill: lightRule},
			Text{X: opt.Margin, Y: y, W: opt.contentWidth(), H: smallFont.LineHeight(), Font: smallFont, Color: muted, Align: AlignLeft, Value: doc.Title},
			Text{X: opt.Margin, Y: y, W: opt.contentWidth(), H: smallFont.LineHeight(), Font: smallFont, Color: muted, Align: AlignRight, Value: fmt.Sprintf("Page %d of %d", p.Number, total)},
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
