package recordstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrIllegalTransition = errors.New("illegal job status transition")
)

// UploadJobStore persists upload jobs. Every operation is scoped to the
// owning user; a job id from another owner behaves as not found.
// ListStaleJobs is the one exception: it crosses users because the
// background sweep acts on behalf of the system, not a caller.
type UploadJobStore interface {
	CreateJob(ctx context.Context, job *UploadJob) (*UploadJob, error)
	UpdateJob(ctx context.Context, job *UploadJob) (*UploadJob, error)
	DeleteJob(ctx context.Context, userID, id string) error
	GetJob(ctx context.Context, userID, id string) (*UploadJob, error)
	ListJobs(ctx context.Context, userID string, f JobFilter) ([]UploadJob, error)
	ListStaleJobs(ctx context.Context, olderThan time.Time) ([]UploadJob, error)
}

// InvoiceStore persists workspace invoices. Business fields are written
// once by CreateInvoice; UpdateInvoicePDF is the only mutation afterwards.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error)
	UpdateInvoicePDF(ctx context.Context, userID, id string, pdfPath, pdfFileName *string, attachedAt *time.Time) (*Invoice, error)
	DeleteInvoice(ctx context.Context, userID, id string) error
	GetInvoice(ctx context.Context, userID, id string) (*Invoice, error)
	ListInvoices(ctx context.Context, userID string, f InvoiceFilter) ([]Invoice, error)
}

// SubmittedInvoiceStore persists permanent records. The application only
// ever creates and lists them.
type SubmittedInvoiceStore interface {
	CreateSubmitted(ctx context.Context, s *SubmittedInvoice) (*SubmittedInvoice, error)
	ListSubmitted(ctx context.Context, userID string) ([]SubmittedInvoice, error)
}

// Stores bundles the three collections for injection into components.
type Stores struct {
	Jobs      UploadJobStore
	Invoices  InvoiceStore
	Submitted SubmittedInvoiceStore
}
