package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Format identifies a supported upload encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// DetectFormat maps a filename to its format by extension, case-insensitively
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	default:
		return "", &UnsupportedFormatError{Filename: filename}
	}
}

// Parse decodes data according to the extension of filename.
// The first row (first sheet for workbooks) is the header.
func Parse(filename string, data []byte) (*Table, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	var table *Table
	switch format {
	case FormatCSV:
		table, err = parseCSV(data)
	case FormatXLSX:
		table, err = parseXLSX(data)
	case FormatXLS:
		table, err = parseXLS(data)
	}
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	return table, nil
}

func parseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), line, len(record))
		}
		if isBlankRecord(record) {
			continue
		}
		records = append(records, record)
	}

	return newTable(header, records), nil
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	// date cells hold serial numbers; they must not count as numeric columns
	markXLSXDates(f, sheets[0], rows)
	return tableFromRows(rows)
}

func parseXLS(data []byte) (table *Table, err error) {
	// the BIFF reader panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, fmt.Errorf("corrupt xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no readable sheet")
	}

	dates := xlsDateXFs(wb)
	date1904 := xlsDate1904(wb)

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}

		numbers := xlsNumbers(row)
		width := row.LastCol() + 1
		for _, n := range numbers {
			if n.col >= width {
				width = n.col + 1
			}
		}

		cells := make([]string, width)
		for j := range cells {
			cells[j] = row.Col(j)
		}
		for _, n := range numbers {
			if !dates[n.xf] {
				continue
			}
			if t, err := excelize.ExcelDateToTime(n.serial, date1904); err == nil {
				cells[n.col] = t.Format(dateTextLayout)
			}
		}
		rows = append(rows, cells)
	}
	return tableFromRows(rows)
}

// sheetRow returns nil for rows without records; WorkSheet.Row dereferences them unchecked
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// tableFromRows treats the first non-blank row as header; workbook readers drop trailing cells
// so no width check is made against the header.
func tableFromRows(rows [][]string) (*Table, error) {
	start := 0
	for start < len(rows) && isBlankRecord(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, errors.New("no columns to parse from file")
	}

	header := trimTrailingBlanks(rows[start])
	var records [][]string
	for _, row := range rows[start+1:] {
		if isBlankRecord(row) {
			continue
		}
		if len(row) > len(header) {
			row = row[:len(header)]
		}
		records = append(records, row)
	}
	return newTable(header, records), nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlanks(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
