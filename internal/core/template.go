package core

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateSheetName is the worksheet name in the downloadable xlsx template.
const TemplateSheetName = "Guests"

// TemplateHeaders are the column headings offered to users before upload.
// Each one is a known alias, so a filled-in template auto-maps fully.
var TemplateHeaders = []string{"Name", "Email", "RSVP Status", "Preferred Language"}

// templateExample is the single example row under the headers.
var templateExample = []string{"Jane Doe", "jane.doe@example.com", "Pending", LangEnglish}

// BuildTemplateXLSX renders the guest template as an xlsx workbook.
func BuildTemplateXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), TemplateSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	example := make([]interface{}, len(templateExample))
	for i, v := range templateExample {
		example[i] = v
	}

	if err := f.SetSheetRow(TemplateSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if err := f.SetSheetRow(TemplateSheetName, "A2", &example); err != nil {
		return nil, fmt.Errorf("write example row: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(TemplateHeaders))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(TemplateSheetName, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("style header row: %w", err)
	}
	if err := f.SetColWidth(TemplateSheetName, "A", lastCol, 24); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildTemplateCSV renders the guest template as UTF-8 csv.
func BuildTemplateCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll([][]string{TemplateHeaders, templateExample}); err != nil {
		return nil, fmt.Errorf("write csv template: %w", err)
	}
	return buf.Bytes(), nil
}
