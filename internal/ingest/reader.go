package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/anushreehmm/nodedown/internal/models"
)

// Format is the container format of a source file.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// RawTable is an untyped grid of cells exactly as read from a source,
// boilerplate rows included. Every row is padded to Width.
type RawTable struct {
	Rows  [][]string
	Width int
}

// Source locates one spreadsheet export.
type Source struct {
	Path string
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
}

// FormatFromPath infers the container format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}

// ReadFile loads the source at src.Path into a RawTable.
func ReadFile(kind models.SourceKind, src Source) (*RawTable, error) {
	format, err := FormatFromPath(src.Path)
	if err != nil {
		return nil, unreadable(kind, src.Path, err)
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, unreadable(kind, src.Path, err)
	}
	defer f.Close()

	table, err := ReadTable(f, format, src.Sheet)
	if err != nil {
		return nil, unreadable(kind, src.Path, err)
	}
	return table, nil
}

// ReadTable parses r as the given format. Errors are returned unwrapped; the
// caller decides which source they belong to.
func ReadTable(r io.Reader, format Format, sheet string) (*RawTable, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readWorkbook(r, sheet)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return newRawTable(rows), nil
}

func readWorkbook(r io.Reader, sheet string) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	// Raw values keep dates as serial numbers instead of locale-formatted text.
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func newRawTable(rows [][]string) *RawTable {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			padded[i] = row
			continue
		}
		full := make([]string, width)
		copy(full, row)
		padded[i] = full
	}
	return &RawTable{Rows: padded, Width: width}
}
