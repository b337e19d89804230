package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"InvoiceDesk/internal/recordstore"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ParseError reports a byte stream that could not be decoded as its
// declared file type.
type ParseError struct {
	FileType recordstore.FileType
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot decode file as %s: %v", e.FileType, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawRecord is one data row keyed by canonical column name. Number is the
// 1-based position in the file including the header line, so the first
// data row is number 2.
type RawRecord struct {
	Number int
	Fields map[string]string
}

const (
	colInvoiceID = "invoiceId"
	colSellerID  = "sellerId"
	colDebtorID  = "debtorId"
	colCurrency  = "currency"
	colAmount    = "amount"
	colProduct   = "product"
	colIssueDate = "issueDate"
	colDueDate   = "dueDate"
)

// Column headers are matched ignoring case, spaces, underscores and
// hyphens, so "Invoice ID", "invoice_id" and "invoiceId" all map to the
// same column.
var canonicalColumns = map[string]string{
	"invoiceid": colInvoiceID,
	"sellerid":  colSellerID,
	"debtorid":  colDebtorID,
	"currency":  colCurrency,
	"amount":    colAmount,
	"product":   colProduct,
	"issuedate": colIssueDate,
	"duedate":   colDueDate,
}

var headerNormalizer = strings.NewReplacer(" ", "", "_", "", "-", "")

func normalizeHeader(h string) string {
	return headerNormalizer.Replace(strings.ToLower(strings.TrimSpace(h)))
}

// Parse decodes the file into raw records. A file with a header line and
// no data rows (or no lines at all) yields zero records without error;
// content that cannot be decoded as the declared type yields a ParseError.
func Parse(fileType recordstore.FileType, data []byte) ([]RawRecord, error) {
	var grid [][]string
	var err error
	switch fileType {
	case recordstore.FileTypeCSV:
		grid, err = parseCSV(data)
	case recordstore.FileTypeXLSX:
		grid, err = parseXLSX(data)
	case recordstore.FileTypeXLS:
		grid, err = parseXLS(data)
	default:
		return nil, &ParseError{FileType: fileType, Err: fmt.Errorf("unsupported file type %q", fileType)}
	}
	if err != nil {
		return nil, err
	}
	return mapRecords(grid), nil
}

// parseCSV splits lines on newline and cells on comma. Quoted fields
// containing commas or embedded newlines are not supported; surrounding
// quotes and whitespace are stripped from each cell.
func parseCSV(data []byte) ([][]string, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{FileType: recordstore.FileTypeCSV, Err: fmt.Errorf("content is not valid UTF-8 text")}
	}
	lines := strings.Split(string(data), "\n")
	var grid [][]string
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		row := make([]string, len(cells))
		for i, cell := range cells {
			row[i] = cleanCell(cell)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func cleanCell(cell string) string {
	cell = strings.TrimSpace(cell)
	cell = strings.TrimPrefix(cell, `"`)
	cell = strings.TrimSuffix(cell, `"`)
	return strings.TrimSpace(cell)
}

// parseXLSX reads the first sheet of the workbook.
func parseXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{FileType: recordstore.FileTypeXLSX, Err: err}
	}
	defer xl.Close()

	sheetName := xl.GetSheetName(0)
	rows, err := xl.GetRows(sheetName)
	if err != nil {
		return nil, &ParseError{FileType: recordstore.FileTypeXLSX, Err: err}
	}
	return rows, nil
}

// maxLegacyRows bounds how many rows are read from a legacy workbook.
const maxLegacyRows = 65536

// parseXLS reads the first sheet of a legacy Excel workbook.
func parseXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &ParseError{FileType: recordstore.FileTypeXLS, Err: err}
	}
	return wb.ReadAllCells(maxLegacyRows), nil
}

func mapRecords(grid [][]string) []RawRecord {
	if len(grid) < 2 {
		return nil
	}

	// Column index per canonical name; the first matching header wins.
	indexes := make(map[string]int, len(canonicalColumns))
	for i, header := range grid[0] {
		canon, ok := canonicalColumns[normalizeHeader(header)]
		if !ok {
			continue
		}
		if _, seen := indexes[canon]; !seen {
			indexes[canon] = i
		}
	}

	records := make([]RawRecord, 0, len(grid)-1)
	for i, row := range grid[1:] {
		fields := make(map[string]string, len(indexes))
		for canon, idx := range indexes {
			if idx < len(row) {
				fields[canon] = strings.TrimSpace(row[idx])
			} else {
				fields[canon] = ""
			}
		}
		records = append(records, RawRecord{Number: i + 2, Fields: fields})
	}
	return records
}
