package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names in the XLSX workbook
const (
	SheetAssessments = "Assessments"
	SheetCitations   = "Citations"
)

var (
	assessmentHeader = []any{"patient_id", "assessment", "confidence", "reasoning", "citations", "top_score", "hits", "error"}
	citationHeader   = []any{"patient_id", "chunk_id", "page", "source", "excerpt"}
)

// WriteXLSX writes one row per patient and one row per citation
func WriteXLSX(path string, entries []Entry) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", closeErr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetAssessments); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetCitations); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	assessRows := make([][]any, 0, len(entries))
	var citeRows [][]any
	for _, e := range entries {
		if e.Result == nil {
			assessRows = append(assessRows, []any{e.PatientID, "", "", "", "", "", "", e.Error})
			continue
		}
		r := e.Result
		ids := make([]string, 0, len(r.Citations))
		for _, c := range r.Citations {
			ids = append(ids, c.ChunkID)
			citeRows = append(citeRows, []any{e.PatientID, c.ChunkID, c.Page, c.Source, c.Excerpt})
		}
		assessRows = append(assessRows, []any{
			e.PatientID,
			string(r.Assessment),
			r.Confidence,
			r.Reasoning,
			strings.Join(ids, ", "),
			r.RetrievalDiagnostics.TopScore,
			r.RetrievalDiagnostics.Count,
			"",
		})
	}

	if err := writeSheet(f, SheetAssessments, assessmentHeader, assessRows, bold); err != nil {
		return err
	}
	if err := writeSheet(f, SheetCitations, citationHeader, citeRows, bold); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetAssessments, "D", "D", 80)
	_ = f.SetColWidth(SheetCitations, "E", "E", 100)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
