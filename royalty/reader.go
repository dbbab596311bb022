package royalty

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadSpreadsheet parses an uploaded file into records, dispatching on the
// file extension. Only .csv and .xlsx are accepted.
func ReadSpreadsheet(r io.Reader, filename string) ([]Record, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return ReadCSV(r)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("invalid file type: only .csv and .xlsx files are allowed")
	}
}

// ReadCSV reads a header row plus data rows. Ragged rows are tolerated:
// short rows leave trailing columns empty, long rows drop the overflow.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read header row: %v", err)
	}
	// Strip a UTF-8 BOM some spreadsheet tools prepend.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read row %d: %v", len(records)+2, err)
		}
		records = append(records, makeRecord(header, row))
	}
	return records, nil
}

// ReadXLSX reads the first sheet of a workbook the same way.
func ReadXLSX(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, makeRecord(header, row))
	}
	return records, nil
}

// ReadSpreadsheetBytes is a convenience wrapper for callers holding the
// whole file in memory (e.g. after a storage download).
func ReadSpreadsheetBytes(data []byte, filename string) ([]Record, error) {
	return ReadSpreadsheet(bytes.NewReader(data), filename)
}

func makeRecord(header []string, row []string) Record {
	values := make(map[string]string, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if i < len(row) {
			values[h] = row[i]
		} else {
			values[h] = ""
		}
	}
	return Record{Headers: header, Values: values}
}
