package recordstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition enforces PENDING -> PROCESSING -> {COMPLETED, FAILED}.
// A terminal status never changes and no status ever moves backwards.
func (s JobStatus) CanTransition(to JobStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case JobPending:
		return to == JobProcessing || to == JobCompleted || to == JobFailed
	case JobProcessing:
		return to == JobCompleted || to == JobFailed
	default:
		return false
	}
}

type FileType string

const (
	FileTypeCSV  FileType = "CSV"
	FileTypeXLSX FileType = "XLSX"
	FileTypeXLS  FileType = "XLS"
)

// FileTypeFromName maps a file name to its declared type by extension.
func FileTypeFromName(fileName string) (FileType, error) {
	name := strings.ToLower(strings.TrimSpace(fileName))
	switch {
	case strings.HasSuffix(name, ".csv"):
		return FileTypeCSV, nil
	case strings.HasSuffix(name, ".xlsx"):
		return FileTypeXLSX, nil
	case strings.HasSuffix(name, ".xls"):
		return FileTypeXLS, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", fileName)
	}
}

// UploadJob tracks one uploaded file through ingestion.
type UploadJob struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	FileName       string     `json:"file_name"`
	FileType       FileType   `json:"file_type"`
	Status         JobStatus  `json:"status"`
	SourcePath     string     `json:"source_path"`
	FileHash       string     `json:"file_hash,omitempty"`
	TotalRows      int        `json:"total_rows"`
	SuccessfulRows int        `json:"successful_rows"`
	FailedRows     int        `json:"failed_rows"`
	ErrorSummary   *string    `json:"error_summary,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Invoice is one ingested row in the workspace. Business fields are frozen
// at creation; only the PDF fields change afterwards.
type Invoice struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	InvoiceID        string          `json:"invoice_id"`
	SellerID         string          `json:"seller_id"`
	DebtorID         string          `json:"debtor_id"`
	Currency         string          `json:"currency"`
	Amount           decimal.Decimal `json:"amount"`
	Product          string          `json:"product"`
	IssueDate        string          `json:"issue_date"`
	DueDate          string          `json:"due_date"`
	UploadDate       string          `json:"upload_date"`
	UploadJobID      string          `json:"upload_job_id"`
	IsValid          bool            `json:"is_valid"`
	ValidationErrors []string        `json:"validation_errors"`
	PDFPath          *string         `json:"pdf_path,omitempty"`
	PDFFileName      *string         `json:"pdf_file_name,omitempty"`
	PDFAttachedAt    *time.Time      `json:"pdf_attached_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (inv *Invoice) HasPDF() bool {
	return inv.PDFPath != nil && strings.TrimSpace(*inv.PDFPath) != ""
}

// SubmittedInvoice is the permanent copy of a workspace invoice. Never
// updated or deleted by the application once written.
type SubmittedInvoice struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	InvoiceID           string          `json:"invoice_id"`
	SellerID            string          `json:"seller_id"`
	DebtorID            string          `json:"debtor_id"`
	Currency            string          `json:"currency"`
	Amount              decimal.Decimal `json:"amount"`
	Product             string          `json:"product"`
	IssueDate           string          `json:"issue_date"`
	DueDate             string          `json:"due_date"`
	UploadDate          string          `json:"upload_date"`
	PDFPath             *string         `json:"pdf_path,omitempty"`
	PDFFileName         *string         `json:"pdf_file_name,omitempty"`
	PDFAttachedAt       *time.Time      `json:"pdf_attached_at,omitempty"`
	SubmittedDate       string          `json:"submitted_date"`
	SubmittedAt         time.Time       `json:"submitted_at"`
	OriginalUploadJobID string          `json:"original_upload_job_id"`
	OriginalInvoiceID   string          `json:"original_invoice_id"`
	SubmittedBy         string          `json:"submitted_by"`
}

// JobFilter narrows job listings. Zero values mean "no restriction".
type JobFilter struct {
	SourcePath string
	FileHash   string
	Status     JobStatus
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	UploadJobID string
	OnlyValid   bool
}
