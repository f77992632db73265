package report

import (
	"fmt"
	"io"
	"ppe_inspection/internal/form"
	"time"

	"github.com/xuri/excelize/v2"
)

// SummaryRow is one answered inspection in the spreadsheet export.
type SummaryRow struct {
	Request     form.RequestInfo
	SubmittedAt time.Time
	Sheet       form.Sheet
	Photos      int
}

type xlsxColumn struct {
	title string
	width float64
	value func(r SummaryRow, sum form.Summary) any
}

var summaryColumns = []xlsxColumn{
	{"Request", 10, func(r SummaryRow, _ form.Summary) any { return r.Request.ID }},
	{"Company", 24, func(r SummaryRow, _ form.Summary) any { return r.Request.Company }},
	{"Region", 16, func(r SummaryRow, _ form.Summary) any { return r.Sheet.Identification.Region }},
	{"Site code", 14, func(r SummaryRow, _ form.Summary) any { return r.Request.SiteCode }},
	{"Inspected person", 28, func(r SummaryRow, _ form.Summary) any { return r.Sheet.Identification.FullName }},
	{"CPF", 16, func(r SummaryRow, _ form.Summary) any { return r.Sheet.Identification.NationalID }},
	{"Role", 20, func(r SummaryRow, _ form.Summary) any { return r.Sheet.Identification.Role }},
	{"Submitted on", 18, func(r SummaryRow, _ form.Summary) any { return formatTime(r.SubmittedAt) }},
	{"Work at height", 14, func(r SummaryRow, _ form.Summary) any { return gateText(r.Sheet.Aerial.Gate) }},
	{"Electrical work", 14, func(r SummaryRow, _ form.Summary) any { return gateText(r.Sheet.Electrical.Gate) }},
	{"Approved", 10, func(_ SummaryRow, s form.Summary) any { return s.Tally.Approved }},
	{"Rejected", 10, func(_ SummaryRow, s form.Summary) any { return s.Tally.Rejected }},
	{"Not applicable", 14, func(_ SummaryRow, s form.Summary) any { return s.Tally.NotApplicable }},
	{"Completion", 12, func(_ SummaryRow, s form.Summary) any { return fmt.Sprintf("%.0f%%", s.Completion*100) }},
	{"Photos", 8, func(r SummaryRow, _ form.Summary) any { return r.Photos }},
	{"Verdict", 14, func(_ SummaryRow, s form.Summary) any { return s.Outcome.Label() }},
}

func gateText(g form.Gate) string {
	switch g {
	case form.GateYes:
		return "Yes"
	case form.GateNo:
		return "No"
	}
	return "-"
}

const summarySheet = "Inspections"

// WriteSummaryXLSX writes one row per inspection with the same verdict the
// PDF report prints, followed by outcome totals.
func WriteSummaryXLSX(rows []SummaryRow, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#154360"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}
	styles := map[form.Outcome]int{}
	for outcome, color := range map[form.Outcome]string{
		form.OutcomeApproved:   "#C8E6C9",
		form.OutcomeReproved:   "#FFCDD2",
		form.OutcomeIncomplete: "#FFE0B2",
	} {
		id, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[outcome] = id
	}

	for i, col := range summaryColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(summarySheet, cell, col.title); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(summarySheet, name, name, col.width); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(summaryColumns), 1)
	if err := f.SetCellStyle(summarySheet, "A1", last, headerStyle); err != nil {
		return err
	}

	counts := map[form.Outcome]int{}
	for r, row := range rows {
		sum := form.Evaluate(row.Sheet)
		counts[sum.Outcome]++
		for c, col := range summaryColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(summarySheet, cell, col.value(row, sum)); err != nil {
				return err
			}
		}
		verdict, _ := excelize.CoordinatesToCellName(len(summaryColumns), r+2)
		if err := f.SetCellStyle(summarySheet, verdict, verdict, styles[sum.Outcome]); err != nil {
			return err
		}
	}

	line := len(rows) + 3
	for _, o := range []form.Outcome{form.OutcomeApproved, form.OutcomeReproved, form.OutcomeIncomplete} {
		key, _ := excelize.CoordinatesToCellName(1, line)
		val, _ := excelize.CoordinatesToCellName(2, line)
		f.SetCellValue(summarySheet, key, o.Label())
		f.SetCellValue(summarySheet, val, counts[o])
		f.SetCellStyle(summarySheet, key, key, styles[o])
		line++
	}

	if err := f.SetPanes(summarySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return f.Write(w)
}
