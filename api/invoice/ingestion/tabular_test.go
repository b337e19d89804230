package ingestion

import (
	"errors"
	"strings"
	"testing"

	"InvoiceDesk/internal/recordstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const headerLine = "invoiceId,sellerId,debtorId,currency,amount,product,issueDate,dueDate"

func csvBytes(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

func TestParseCSVMapsHeaderToFields(t *testing.T) {
	data := csvBytes(
		headerLine,
		"9f1b6e4a-0c2d-4e8f-9a3b-1d5c7e9f0a2b,7a2c8d1e-3f4b-4a5c-8d9e-0f1a2b3c4d5e,5e4d3c2b-1a0f-4e9d-8c7b-6a5f4e3d2c1b,USD,1500.50,Steel Beams,2024-01-10,2024-02-10",
	)
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 2, rec.Number)
	assert.Equal(t, "9f1b6e4a-0c2d-4e8f-9a3b-1d5c7e9f0a2b", rec.Fields[colInvoiceID])
	assert.Equal(t, "USD", rec.Fields[colCurrency])
	assert.Equal(t, "1500.50", rec.Fields[colAmount])
	assert.Equal(t, "Steel Beams", rec.Fields[colProduct])
	assert.Equal(t, "2024-01-10", rec.Fields[colIssueDate])
	assert.Equal(t, "2024-02-10", rec.Fields[colDueDate])
}

func TestParseCSVHeaderAliases(t *testing.T) {
	data := csvBytes(
		"Invoice ID,seller_id,DEBTOR-ID,Currency,AMOUNT,Product,Issue Date,due_date",
		"a,b,c,d,e,f,g,h",
	)
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "a", rec.Fields[colInvoiceID])
	assert.Equal(t, "b", rec.Fields[colSellerID])
	assert.Equal(t, "c", rec.Fields[colDebtorID])
	assert.Equal(t, "g", rec.Fields[colIssueDate])
	assert.Equal(t, "h", rec.Fields[colDueDate])
}

func TestParseCSVBlankLinesDiscarded(t *testing.T) {
	data := csvBytes(
		headerLine,
		"",
		"   ",
		"a,b,c,USD,10,Widget,2024-01-01,2024-02-01",
		"",
	)
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Number)
}

func TestParseCSVShortRowsPadded(t *testing.T) {
	data := csvBytes(headerLine, "only-one-cell")
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "only-one-cell", rec.Fields[colInvoiceID])
	assert.Equal(t, "", rec.Fields[colSellerID])
	assert.Equal(t, "", rec.Fields[colDueDate])
}

func TestParseCSVStripsQuotesAndWhitespace(t *testing.T) {
	data := csvBytes(headerLine, ` "a" , b ,"c",USD, 10 ,"Widget Pro",2024-01-01,2024-02-01`)
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "a", rec.Fields[colInvoiceID])
	assert.Equal(t, "b", rec.Fields[colSellerID])
	assert.Equal(t, "c", rec.Fields[colDebtorID])
	assert.Equal(t, "Widget Pro", rec.Fields[colProduct])
}

// A quoted field containing a comma splits into two cells and shifts the
// remaining columns right. That mirrors the documented behavior of the
// parser rather than a bug in this test.
func TestParseCSVDoesNotHandleQuotedCommas(t *testing.T) {
	data := csvBytes(
		"invoiceId,amount,product",
		`id-1,"1,500.50",Widget`,
	)
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "1", rec.Fields[colAmount])
	assert.Equal(t, "500.50", rec.Fields[colProduct])
}

func TestParseCSVCarriageReturnsTrimmed(t *testing.T) {
	data := []byte(headerLine + "\r\n" + "a,b,c,USD,10,Widget,2024-01-01,2024-02-01\r\n")
	records, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-02-01", records[0].Fields[colDueDate])
}

func TestParseSameBytesTwiceIdentical(t *testing.T) {
	data := csvBytes(headerLine, "a,b,c,USD,10,Widget,2024-01-01,2024-02-01")
	first, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	second, err := Parse(recordstore.FileTypeCSV, data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseCSVHeaderOnlyYieldsZeroRecords(t *testing.T) {
	records, err := Parse(recordstore.FileTypeCSV, csvBytes(headerLine))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCSVEmptyFileYieldsZeroRecords(t *testing.T) {
	records, err := Parse(recordstore.FileTypeCSV, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCSVInvalidUTF8IsParseError(t *testing.T) {
	_, err := Parse(recordstore.FileTypeCSV, []byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, recordstore.FileTypeCSV, parseErr.FileType)
}

func TestParseXLSXRoundTrip(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"invoiceId", "currency", "amount"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"id-1", "EUR", "42.00"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, perr := Parse(recordstore.FileTypeXLSX, buf.Bytes())
	require.NoError(t, perr)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Number)
	assert.Equal(t, "id-1", records[0].Fields[colInvoiceID])
	assert.Equal(t, "EUR", records[0].Fields[colCurrency])
}

func TestParseXLSXGarbageIsParseError(t *testing.T) {
	_, err := Parse(recordstore.FileTypeXLSX, []byte("definitely not a workbook"))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, recordstore.FileTypeXLSX, parseErr.FileType)
}

func TestParseXLSGarbageIsParseError(t *testing.T) {
	_, err := Parse(recordstore.FileTypeXLS, []byte("not an ole2 container"))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParseUnsupportedTypeIsParseError(t *testing.T) {
	_, err := Parse(recordstore.FileType("PDF"), []byte("x"))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}
