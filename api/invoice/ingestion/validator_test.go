package ingestion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInvoiceID = "9f1b6e4a-0c2d-4e8f-9a3b-1d5c7e9f0a2b"
	testSellerID  = "7a2c8d1e-3f4b-4a5c-8d9e-0f1a2b3c4d5e"
	testDebtorID  = "5e4d3c2b-1a0f-4e9d-8c7b-6a5f4e3d2c1b"
)

func validRecord(number int) RawRecord {
	return RawRecord{
		Number: number,
		Fields: map[string]string{
			colInvoiceID: testInvoiceID,
			colSellerID:  testSellerID,
			colDebtorID:  testDebtorID,
			colCurrency:  "USD",
			colAmount:    "1500.50",
			colProduct:   "Steel Beams",
			colIssueDate: "2024-01-10",
			colDueDate:   "2024-02-10",
		},
	}
}

func TestValidateAllFieldsValid(t *testing.T) {
	row := Validate(validRecord(2))

	assert.True(t, row.IsValid)
	assert.Empty(t, row.Errors)
	assert.Equal(t, testInvoiceID, row.InvoiceID)
	assert.Equal(t, "USD", row.Currency)
	assert.True(t, row.Amount.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, "Steel Beams", row.Product)
	assert.Equal(t, "2024-01-10", row.IssueDate)
	assert.Equal(t, "2024-02-10", row.DueDate)
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	row := Validate(RawRecord{
		Number: 5,
		Fields: map[string]string{
			colInvoiceID: "not-a-uuid",
			colSellerID:  "",
			colDebtorID:  "123",
			colCurrency:  "XYZ",
			colAmount:    "free",
			colProduct:   "   ",
			colIssueDate: "01/10/2024",
			colDueDate:   "soon",
		},
	})

	assert.False(t, row.IsValid)
	assert.Len(t, row.Errors, 8)
	for _, msg := range row.Errors {
		assert.True(t, strings.HasPrefix(msg, "Row 5: "), "message %q should carry the row number", msg)
	}
}

func TestValidateFailedFieldsStayZeroValued(t *testing.T) {
	rec := validRecord(2)
	rec.Fields[colCurrency] = "BTC"
	rec.Fields[colAmount] = "-1"
	rec.Fields[colProduct] = ""

	row := Validate(rec)

	assert.False(t, row.IsValid)
	assert.Equal(t, "", row.Currency)
	assert.True(t, row.Amount.IsZero())
	assert.Equal(t, "", row.Product)
	assert.Equal(t, testInvoiceID, row.InvoiceID)
}

func TestValidateCurrencyCaseInsensitiveAndNormalized(t *testing.T) {
	for _, input := range []string{"usd", "Usd", "USD", " usd "} {
		rec := validRecord(2)
		rec.Fields[colCurrency] = input
		row := Validate(rec)
		assert.True(t, row.IsValid, "currency %q should validate", input)
		assert.Equal(t, "USD", row.Currency)
	}
}

func TestValidateCurrencyOutsideAllowSet(t *testing.T) {
	rec := validRecord(2)
	rec.Fields[colCurrency] = "INR"
	row := Validate(rec)

	assert.False(t, row.IsValid)
	require.Len(t, row.Errors, 1)
	assert.Contains(t, row.Errors[0], "currency must be one of")
}

func TestValidateAmountBoundaries(t *testing.T) {
	cases := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"1500.50", true},
		{"1000000", true},
		{"0", false},
		{"-5", false},
		{"abc", false},
		{"", false},
	}
	for _, tc := range cases {
		rec := validRecord(2)
		rec.Fields[colAmount] = tc.amount
		row := Validate(rec)
		assert.Equal(t, tc.valid, row.IsValid, "amount %q", tc.amount)
	}
}

func TestValidateUUIDVersionBounds(t *testing.T) {
	rec := validRecord(2)
	rec.Fields[colInvoiceID] = "00000000-0000-0000-0000-000000000000"
	row := Validate(rec)
	assert.False(t, row.IsValid)
	assert.Equal(t, "", row.InvoiceID)

	rec = validRecord(2)
	rec.Fields[colInvoiceID] = "c232ab00-9414-11ec-b3c8-9f6bdeced846"
	row = Validate(rec)
	assert.True(t, row.IsValid, "a version 1 UUID should validate")
}

func TestValidateUUIDRequiresPlainHyphenatedForm(t *testing.T) {
	// uuid.Parse would take all of these; the validator only accepts the
	// hyphenated textual form.
	for _, input := range []string{
		"urn:uuid:" + testInvoiceID,
		"{" + testInvoiceID + "}",
		strings.ReplaceAll(testInvoiceID, "-", ""),
	} {
		rec := validRecord(2)
		rec.Fields[colInvoiceID] = input
		row := Validate(rec)
		assert.False(t, row.IsValid, "uuid form %q should fail", input)
	}
}

func TestValidateDateFormats(t *testing.T) {
	bad := []string{"2024/01/10", "01-10-2024", "2024-13-01", "2024-02-30", "2024-1-5", "yesterday", ""}
	for _, input := range bad {
		rec := validRecord(2)
		rec.Fields[colIssueDate] = input
		row := Validate(rec)
		assert.False(t, row.IsValid, "issueDate %q should fail", input)
		assert.Equal(t, "", row.IssueDate)
	}
}

func TestValidateDueDateStrictlyAfterIssueDate(t *testing.T) {
	cases := []struct {
		due   string
		valid bool
	}{
		{"2024-02-10", false}, // same day
		{"2024-02-09", false},
		{"2024-02-11", true},
	}
	for _, tc := range cases {
		rec := validRecord(2)
		rec.Fields[colIssueDate] = "2024-02-10"
		rec.Fields[colDueDate] = tc.due
		row := Validate(rec)

		assert.Equal(t, tc.valid, row.IsValid, "dueDate %s", tc.due)
		if !tc.valid {
			require.Len(t, row.Errors, 1)
			assert.Contains(t, row.Errors[0], "dueDate must be after issueDate")
			// The individually-valid dates stay populated.
			assert.Equal(t, "2024-02-10", row.IssueDate)
			assert.Equal(t, tc.due, row.DueDate)
		}
	}
}

func TestValidateCrossFieldSkippedWhenDateInvalid(t *testing.T) {
	rec := validRecord(2)
	rec.Fields[colIssueDate] = "garbage"
	rec.Fields[colDueDate] = "2024-02-10"
	row := Validate(rec)

	assert.False(t, row.IsValid)
	require.Len(t, row.Errors, 1)
	assert.Contains(t, row.Errors[0], "issueDate")
}

func TestValidateProductTrimmed(t *testing.T) {
	rec := validRecord(2)
	rec.Fields[colProduct] = "  Widget  "
	row := Validate(rec)

	assert.True(t, row.IsValid)
	assert.Equal(t, "Widget", row.Product)
}

func TestValidateRowNumberOffsets(t *testing.T) {
	for _, number := range []int{2, 7, 120} {
		rec := RawRecord{Number: number, Fields: map[string]string{}}
		row := Validate(rec)
		require.NotEmpty(t, row.Errors)
		assert.True(t, strings.HasPrefix(row.Errors[0], fmt.Sprintf("Row %d:", number)))
	}
}
