package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/recordstore"
)

// Notifier receives a ping after record writes so live views re-read.
type Notifier interface {
	Notify(userID string)
}

// FilesCache is the uploaded-files listing that submission resets.
type FilesCache interface {
	Invalidate(userID string)
}

// Outcome classifies a submission run.
type Outcome string

const (
	OutcomeFull    Outcome = "full"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Report is the per-run accounting returned to the caller. Errors holds
// every failure message; Message carries the capped sample for display.
type Report struct {
	Outcome        Outcome  `json:"outcome"`
	Attempted      int      `json:"attempted"`
	Submitted      int      `json:"submitted"`
	CopyFailures   int      `json:"copy_failures"`
	DeleteFailures int      `json:"delete_failures"`
	Errors         []string `json:"errors,omitempty"`
	Message        string   `json:"message"`
}

// Transaction moves valid invoices into permanent storage. It assumes the
// caller already verified that every invoice passed in carries a PDF; it
// does not re-check per row.
type Transaction struct {
	stores   recordstore.Stores
	cache    FilesCache
	notifier Notifier
}

func NewTransaction(stores recordstore.Stores, cache FilesCache, notifier Notifier) *Transaction {
	return &Transaction{stores: stores, cache: cache, notifier: notifier}
}

// Submit copies each invoice into a SubmittedInvoice, then deletes the
// originals whose copy succeeded. Copies run sequentially and each row
// settles on its own. Deletion targets are tracked by record identity, not
// by position, so an interleaved copy failure can never cause the wrong
// original to be removed. PDFs are referenced, never moved: both records
// point at the same storage path.
func (t *Transaction) Submit(ctx context.Context, userID, submittedBy string, invoices []recordstore.Invoice) *Report {
	report := &Report{Attempted: len(invoices)}
	now := time.Now()

	copied := make([]recordstore.Invoice, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		sub := buildSubmitted(inv, submittedBy, now)
		if _, err := t.stores.Submitted.CreateSubmitted(ctx, &sub); err != nil {
			report.CopyFailures++
			report.Errors = append(report.Errors, fmt.Sprintf("invoice %s: %s", inv.InvoiceID, storeReason(err)))
			continue
		}
		copied = append(copied, *inv)
	}
	report.Submitted = len(copied)

	for i := range copied {
		inv := &copied[i]
		if err := t.stores.Invoices.DeleteInvoice(ctx, userID, inv.ID); err != nil {
			// The copy exists; the original lingers until the next run,
			// which will duplicate it rather than reconcile.
			report.DeleteFailures++
			report.Errors = append(report.Errors, fmt.Sprintf("invoice %s: submitted but original not removed: %s", inv.InvoiceID, storeReason(err)))
		}
	}

	if t.notifier != nil {
		t.notifier.Notify(userID)
	}
	if t.cache != nil {
		t.cache.Invalidate(userID)
	}

	switch {
	case len(report.Errors) == 0:
		report.Outcome = OutcomeFull
		report.Message = fmt.Sprintf("%d invoices submitted to permanent storage", report.Submitted)
	case report.Submitted > 0:
		report.Outcome = OutcomePartial
		report.Message = fmt.Sprintf("%d of %d invoices submitted; %s", report.Submitted, report.Attempted, sample(report.Errors))
	default:
		report.Outcome = OutcomeFailed
		report.Message = fmt.Sprintf("submission failed for all %d invoices; %s", report.Attempted, sample(report.Errors))
	}

	logger.Audit("user %s submitted %d/%d invoices (%d copy failures, %d delete failures)",
		userID, report.Submitted, report.Attempted, report.CopyFailures, report.DeleteFailures)
	return report
}

func buildSubmitted(inv *recordstore.Invoice, submittedBy string, now time.Time) recordstore.SubmittedInvoice {
	return recordstore.SubmittedInvoice{
		UserID:              inv.UserID,
		InvoiceID:           inv.InvoiceID,
		SellerID:            inv.SellerID,
		DebtorID:            inv.DebtorID,
		Currency:            inv.Currency,
		Amount:              inv.Amount,
		Product:             inv.Product,
		IssueDate:           inv.IssueDate,
		DueDate:             inv.DueDate,
		UploadDate:          inv.UploadDate,
		PDFPath:             inv.PDFPath,
		PDFFileName:         inv.PDFFileName,
		PDFAttachedAt:       inv.PDFAttachedAt,
		SubmittedDate:       now.Format("2006-01-02"),
		SubmittedAt:         now,
		OriginalUploadJobID: inv.UploadJobID,
		OriginalInvoiceID:   inv.ID,
		SubmittedBy:         submittedBy,
	}
}

func storeReason(err error) string {
	if msg := recordstore.FriendlyMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

func sample(errs []string) string {
	if len(errs) <= config.ErrorSampleSize {
		return strings.Join(errs, "; ")
	}
	head := strings.Join(errs[:config.ErrorSampleSize], "; ")
	return fmt.Sprintf("%s; ... and %d more errors", head, len(errs)-config.ErrorSampleSize)
}
