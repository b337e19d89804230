package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidatedRow is the outcome of validating one raw record. Fields that
// failed their check stay at zero values; Errors lists every failure for
// the row, so IsValid is true exactly when Errors is empty.
type ValidatedRow struct {
	RowNumber int

	InvoiceID string
	SellerID  string
	DebtorID  string
	Currency  string
	Amount    decimal.Decimal
	Product   string
	IssueDate string
	DueDate   string

	IsValid bool
	Errors  []string
}

var allowedCurrencies = map[string]struct{}{
	"AUD": {}, "CAD": {}, "CHF": {}, "EUR": {},
	"GBP": {}, "JPY": {}, "SGD": {}, "USD": {},
}

const currencyList = "AUD, CAD, CHF, EUR, GBP, JPY, SGD, USD"

// Validate applies every check to the record and accumulates all failures,
// so one row can report several errors at once. It performs no I/O.
func Validate(raw RawRecord) ValidatedRow {
	row := ValidatedRow{RowNumber: raw.Number}
	var errs []string

	fail := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		errs = append(errs, fmt.Sprintf("Row %d: %s", raw.Number, msg))
	}

	ids := []struct {
		name string
		dst  *string
	}{
		{colInvoiceID, &row.InvoiceID},
		{colSellerID, &row.SellerID},
		{colDebtorID, &row.DebtorID},
	}
	for _, field := range ids {
		value := strings.TrimSpace(raw.Fields[field.name])
		parsed, err := uuid.Parse(value)
		// uuid.Parse also accepts urn: and braced encodings; only the
		// plain hyphenated form round-trips equal to its String().
		if err != nil || parsed.String() != strings.ToLower(value) ||
			parsed.Version() < 1 || parsed.Version() > 5 {
			fail("%s must be a valid UUID", field.name)
			continue
		}
		*field.dst = value
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Fields[colCurrency]))
	if _, ok := allowedCurrencies[currency]; ok {
		row.Currency = currency
	} else {
		fail("currency must be one of %s", currencyList)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Fields[colAmount]))
	if err != nil || !amount.IsPositive() {
		fail("amount must be a number greater than 0")
	} else {
		row.Amount = amount
	}

	product := strings.TrimSpace(raw.Fields[colProduct])
	if product == "" {
		fail("product must not be empty")
	} else {
		row.Product = product
	}

	issue, issueOK := parseDate(raw.Fields[colIssueDate])
	if issueOK {
		row.IssueDate = strings.TrimSpace(raw.Fields[colIssueDate])
	} else {
		fail("%s must be a valid date in YYYY-MM-DD format", colIssueDate)
	}

	due, dueOK := parseDate(raw.Fields[colDueDate])
	if dueOK {
		row.DueDate = strings.TrimSpace(raw.Fields[colDueDate])
	} else {
		fail("%s must be a valid date in YYYY-MM-DD format", colDueDate)
	}

	// Both dates individually valid: the cross-field check adds one more
	// error without clearing either date.
	if issueOK && dueOK && !due.After(issue) {
		fail("%s must be after %s", colDueDate, colIssueDate)
	}

	row.Errors = errs
	row.IsValid = len(errs) == 0
	return row
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
