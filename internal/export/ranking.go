package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

const (
	rankingSheet   = "ranking"
	breakdownSheet = "breakdown"
)

var rankingHeaders = []string{"Position", "Project", "Type", "Building", "Status", "Axes Total", "Existing Sub-score", "Total"}

var breakdownHeaders = []string{"Position", "Project", "Axis", "Criterion", "Parameter", "Value", "Weight", "Score", "Unscored"}

// BuildRankingXLSX renders a ranking workbook with one summary row per
// project and one breakdown row per scored criterion.
func BuildRankingXLSX(entries []scoring.RankEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(breakdownSheet); err != nil {
		return nil, err
	}

	writeRow(f, rankingSheet, 1, toAny(rankingHeaders))
	writeRow(f, breakdownSheet, 1, toAny(breakdownHeaders))

	breakdownRow := 2
	for i, e := range entries {
		writeRow(f, rankingSheet, i+2, []any{
			e.Position, e.Name, string(e.BuildingType), e.BuildingCode, string(e.Status),
			axesTotal(e), existingSubScore(e), e.Total,
		})
		if e.Score == nil {
			continue
		}
		for _, c := range e.Score.PerCriterion {
			writeRow(f, breakdownSheet, breakdownRow, []any{
				e.Position, e.Name, c.AxisID, c.Name, c.ParameterLabel,
				c.Value, c.Weight, c.Score, c.Unscored,
			})
			breakdownRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRankingPDF renders the ranking as a single table.
func BuildRankingPDF(title string, entries []scoring.RankEntry, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, tr(title))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Projects: %d", len(entries)))
	pdf.Ln(8)

	widths := []float64{12, 66, 24, 24, 22, 22}
	headers := []string{"#", "Project", "Type", "Building", "Status", "Total"}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, e := range entries {
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", e.Position), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(e.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, string(e.BuildingType), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(e.BuildingCode), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, string(e.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[5], 6, fmt.Sprintf("%.2f", e.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func axesTotal(e scoring.RankEntry) float64 {
	if e.Score == nil {
		return 0
	}
	return e.Score.AxesTotal
}

func existingSubScore(e scoring.RankEntry) any {
	if e.Score == nil || e.Score.ExistingSubScore == nil {
		return ""
	}
	return *e.Score.ExistingSubScore
}
