package constants

import "fmt"

// ============================================================================
// AUTHENTICATION & SESSION ERRORS
// ============================================================================

const (
	ErrMissingUserIDBody = "user_id is required in the request"
	ErrSessionExpired    = "Your session has expired. Please login again"
	ErrUnauthorized      = "You are not authorized to perform this action"
)

// ============================================================================
// FILE UPLOAD ERRORS
// ============================================================================

const (
	ErrFileUploadFailed   = "File upload failed. Please check the file format and try again"
	ErrInvalidFileFormat  = "Invalid file format. Please upload a CSV, XLSX or XLS file"
	ErrFileTooLarge       = "File size exceeds the maximum limit"
	ErrFileParsingFailed  = "Failed to parse file contents. Please check the file format"
	ErrEmptyFile          = "Uploaded file is empty"
	ErrFileAlreadyOnFile  = "This file was already uploaded. Delete the previous upload first"
	ErrInvalidDataRow     = "Invalid data found in row %d: %s"
	ErrFileNameRequired   = "file name is required"
	ErrSourcePathRequired = "source_path is required"
)

// ============================================================================
// INVOICE & SUBMISSION ERRORS
// ============================================================================

const (
	ErrInvoiceNotFound      = "Invoice not found or you don't have access to it"
	ErrInvoiceIDRequired    = "invoice_id is required"
	ErrNoValidInvoices      = "No valid invoices available to submit"
	ErrSubmitNeedsPDF       = "Every valid invoice must have a PDF attached before submission"
	ErrJobNotFound          = "Upload job not found"
	ErrUploadedFileNotFound = "Uploaded file not found in the workspace"
	ErrOperationInFlight    = "Another operation is already running for this resource. Try again once it finishes"
)

// ============================================================================
// PDF ATTACHMENT ERRORS
// ============================================================================

const (
	ErrNotPDF          = "Only PDF files can be attached to an invoice"
	ErrPDFPathRequired = "path is required"
	ErrNoPDFAttached   = "Invoice has no PDF attached"
)

// ============================================================================
// DATABASE OPERATION ERRORS
// ============================================================================

const (
	ErrDatabaseConnection   = "Database connection failed. Please try again later"
	ErrDatabaseQueryFailed  = "Database query failed. Please try again or contact support"
	ErrDatabaseDeleteFailed = "Failed to delete record from database"
	ErrTransactionFailed    = "Transaction failed. Please try again"
	ErrDuplicateEntry       = "This entry already exists in the system"
	ErrConstraintViolation  = "Operation violates data constraints"
	ErrRecordNotFound       = "Record not found in the database"
)

// ============================================================================
// GENERAL ERRORS
// ============================================================================

const (
	ErrInternalServer  = "Internal server error. Please contact support"
	ErrOperationFailed = "Operation failed. Please try again"
	ErrNoDataFound     = "No data found matching your criteria"
	ErrInvalidRequest  = "Invalid request. Please check your input"
)

// ============================================================================
// SUCCESS MESSAGES
// ============================================================================

const (
	SuccessDeleted   = "File and all derived records deleted successfully"
	SuccessUploaded  = "File uploaded successfully. %d records processed"
	SuccessDetached  = "PDF detached from invoice"
	SuccessSubmitted = "%d invoices submitted to permanent storage"
)

// ============================================================================
// HELPER FUNCTIONS TO FORMAT ERRORS WITH CONTEXT
// ============================================================================

// FormatError formats an error message with additional context
func FormatError(baseError string, context ...interface{}) string {
	if len(context) == 0 {
		return baseError
	}
	return fmt.Sprintf(baseError, context...)
}

// FormatRowError formats an error for a specific data row
func FormatRowError(rowNum int, reason string) string {
	return fmt.Sprintf(ErrInvalidDataRow, rowNum, reason)
}
