// Package bulkimport applies library configuration changes read from a
// spreadsheet, one update call per row, and aggregates the outcome.
package bulkimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned when a file has no rows at all.
var ErrEmptySheet = errors.New("worksheet is empty")

// ReadRows reads every row of the first sheet of an .xlsx or .xls workbook,
// or of a .csv file.
func ReadRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return ReadBytes(filepath.Ext(path), data)
}

// ReadBytes parses data according to the file extension ext (".xlsx", ".xls"
// or ".csv"; case-insensitive).
func ReadBytes(ext string, data []byte) ([][]string, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return readCSV(bytes.NewReader(data))
	case ".xlsx", ".xlsm":
		return readWorkbook(bytes.NewReader(data))
	case ".xls":
		return readLegacyWorkbook(data)
	}
	return nil, fmt.Errorf("unsupported import file type %q (want .xlsx, .xls or .csv)", ext)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}

// readLegacyWorkbook reads the first sheet of a BIFF (.xls) workbook.
func readLegacyWorkbook(data []byte) (rows [][]string, err error) {
	// The BIFF decoder panics on truncated records instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("open workbook: malformed xls file: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if workbook == nil || workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	sheet := workbook.GetSheet(0)
	// MaxRow is the last row index; zero leaves no room for data rows.
	if sheet.MaxRow == 0 {
		return nil, ErrEmptySheet
	}
	// ReadAllCells walks the sheets in order, so capping it at the first
	// sheet's row count keeps later sheets out.
	rows = workbook.ReadAllCells(int(sheet.MaxRow) + 1)
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}
