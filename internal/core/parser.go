package core

// parser.go turns an uploaded spreadsheet into a header row plus string rows.
//
// CSV and XLSX are both reduced to [][]string first, then NormalizeSheet
// applies the same header/column/blank-row rules to either source:
//
//  1. Cells are trimmed
//  2. The first non-empty row becomes the header
//  3. Columns with neither header text nor data are dropped
//  4. Columns with data but no header get "Column N" (1-based, in order)
//  5. Blank data rows are removed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// MaxFileSize is the default upload cap (5MB).
const MaxFileSize int64 = 5 * 1024 * 1024

// ParsedSheet is a normalized spreadsheet.
type ParsedSheet struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFile parses a .csv or .xlsx upload. The format is chosen by extension.
func ParseFile(fileName string, data []byte) (*ParsedSheet, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx":
		records, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q (use .xlsx or .csv)", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
	if err != nil {
		return nil, err
	}

	return NormalizeSheet(records)
}

// NormalizeSheet applies header detection and column/row cleanup to raw records.
func NormalizeSheet(records [][]string) (*ParsedSheet, error) {
	headerAt := -1
	for i, row := range records {
		if !isEmptyRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptyFile
	}

	header := trimCells(records[headerAt])
	var data [][]string
	for _, row := range records[headerAt+1:] {
		if isEmptyRow(row) {
			continue
		}
		data = append(data, trimCells(row))
	}

	width := len(header)
	for _, row := range data {
		if len(row) > width {
			width = len(row)
		}
	}

	var (
		keep        []int
		headers     []string
		placeholder int
	)
	for col := 0; col < width; col++ {
		name := cellAt(header, col)
		if name == "" {
			if !columnHasData(data, col) {
				continue
			}
			placeholder++
			name = fmt.Sprintf("Column %d", placeholder)
		}
		keep = append(keep, col)
		headers = append(headers, name)
	}

	rows := make([][]string, len(data))
	for i, row := range data {
		out := make([]string, len(keep))
		for j, col := range keep {
			out[j] = cellAt(row, col)
		}
		rows[i] = out
	}

	return &ParsedSheet{Headers: headers, Rows: rows}, nil
}

func readCSV(data []byte) ([][]string, error) {
	text := decodeText(data)

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", ErrUnreadableFile, err)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrUnreadableFile, err)
	}
	defer func() { _ = f.Close() }()

	return firstSheetRows(f.GetSheetList(), func(sheet string) ([][]string, error) {
		return f.GetRows(sheet)
	})
}

// firstSheetRows returns the rows of the first sheet with any content;
// workbooks often carry empty sheets. A sheet that fails to read is
// skipped, but when no sheet has content the last read error is reported
// instead of an empty file.
func firstSheetRows(sheets []string, getRows func(string) ([][]string, error)) ([][]string, error) {
	var lastErr error
	for _, sheet := range sheets {
		rows, err := getRows(sheet)
		if err != nil {
			lastErr = fmt.Errorf("read sheet %q: %v", sheet, err)
			continue
		}
		for _, row := range rows {
			if !isEmptyRow(row) {
				return rows, nil
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, lastErr)
	}
	return nil, nil
}

// decodeText strips a UTF-8 BOM and decodes non-UTF-8 bytes as Windows-1252,
// the encoding Excel uses for CSV exports on Western European locales.
func decodeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return bytes.ToValidUTF8(data, []byte("\uFFFD"))
	}
	return decoded
}

// sniffDelimiter picks the most frequent of , ; and tab outside quotes in
// the first non-blank line; a tie goes to ','. Excel writes ';' when the
// locale uses a decimal comma.
func sniffDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	counts := map[byte]int{}
	inQuotes := false
	for _, c := range line {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case !inQuotes && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}

	best, bestCount := ',', counts[',']
	for _, d := range []byte{';', '\t'} {
		if counts[d] > bestCount {
			best, bestCount = rune(d), counts[d]
		}
	}
	return best
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func cellAt(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func columnHasData(rows [][]string, col int) bool {
	for _, row := range rows {
		if cellAt(row, col) != "" {
			return true
		}
	}
	return false
}
