package sentimen

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column names an input table must carry.
const (
	TextColumn  = "full_text"
	LabelColumn = "sentiment_pakar"
)

// ReadRecords reads a CSV or Excel workbook file, chosen by extension.
// Legacy binary .xls workbooks are not supported.
func ReadRecords(path string) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".xlsx", ".xlsm":
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save the file as .xlsx or .csv", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrValidation, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if ext == ".csv" {
		return ReadCSV(f)
	}
	return ReadExcel(f)
}

// ReadCSV reads records from a CSV table with a header row.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrValidation, err)
	}
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		rows = append(rows, row)
	}
	return recordsFromTable(header, rows)
}

// ReadExcel reads records from the first sheet of a workbook whose first
// row is the header.
func ReadExcel(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook: %w", ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrValidation)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %s: %w", ErrValidation, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrValidation)
	}
	return recordsFromTable(rows[0], rows[1:])
}

// recordsFromTable maps rows to Records. Rows with blank text are skipped;
// an unknown label fails with the 1-based row number of the source table.
func recordsFromTable(header []string, rows [][]string) ([]Record, error) {
	textCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case TextColumn:
			textCol = i
		case LabelColumn:
			labelCol = i
		}
	}
	var missing []string
	if textCol < 0 {
		missing = append(missing, TextColumn)
	}
	if labelCol < 0 {
		missing = append(missing, LabelColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", ErrValidation, strings.Join(missing, ", "))
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		text := cell(row, textCol)
		if strings.TrimSpace(text) == "" {
			continue
		}
		label, err := ParseLabel(cell(row, labelCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, Record{ID: i, Text: text, Label: label})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
