package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/objectstore"
	"InvoiceDesk/internal/recordstore"
)

var (
	ErrNotPDF        = errors.New("attachment is not a PDF")
	ErrNoPDFAttached = errors.New("invoice has no PDF attached")
	ErrPathNotOwned  = errors.New("path does not belong to the caller")
)

// Notifier receives a ping after record writes so live views re-read.
type Notifier interface {
	Notify(userID string)
}

// Manager associates evidence PDFs with invoices. Attach stores the blob
// first and then points the invoice at it; Detach only clears the pointer
// and deliberately leaves the blob in place, so a mistaken detach stays
// recoverable at the cost of storage that only ever grows.
type Manager struct {
	stores   recordstore.Stores
	objects  objectstore.Storage
	notifier Notifier
}

func NewManager(stores recordstore.Stores, objects objectstore.Storage, notifier Notifier) *Manager {
	return &Manager{stores: stores, objects: objects, notifier: notifier}
}

var pdfMagic = []byte("%PDF-")

// IsPDF gates on the declared content type, the file extension and the
// leading %PDF- magic. Browsers are inconsistent about declaring either
// of the first two, so an empty declaration passes, but content without
// the magic is always refused.
func IsPDF(fileName, contentType string, data []byte) bool {
	if !bytes.HasPrefix(data, pdfMagic) {
		return false
	}
	if ct := strings.ToLower(strings.TrimSpace(contentType)); ct != "" && !strings.Contains(ct, "application/pdf") {
		return false
	}
	if name := strings.ToLower(strings.TrimSpace(fileName)); name != "" && !strings.HasSuffix(name, ".pdf") {
		return false
	}
	return true
}

// Attach uploads the PDF under a per-invoice key and records it on the
// invoice. The content gate runs before any byte leaves the process. When
// the record update fails after a successful upload the blob is orphaned;
// it is logged and left alone, never retried or cleaned up.
func (m *Manager) Attach(ctx context.Context, userID, invoiceID, fileName, contentType string, data []byte) (*recordstore.Invoice, error) {
	if !IsPDF(fileName, contentType, data) {
		return nil, ErrNotPDF
	}
	inv, err := m.stores.Invoices.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}

	key := objectstore.BuildPDFKey(userID, inv.ID, fileName)
	if _, err := m.objects.Upload(ctx, key, data, "application/pdf", nil); err != nil {
		return nil, fmt.Errorf("store pdf for invoice %s: %w", inv.ID, err)
	}

	now := time.Now()
	updated, err := m.stores.Invoices.UpdateInvoicePDF(ctx, userID, inv.ID, &key, &fileName, &now)
	if err != nil {
		log.Printf("[ERROR] attachments: invoice %s not updated, blob %s orphaned: %v", inv.ID, key, err)
		return nil, err
	}

	m.notify(userID)
	logger.Audit("user %s attached PDF %s to invoice %s", userID, fileName, inv.ID)
	return updated, nil
}

// Detach clears the invoice's PDF fields. The stored blob survives.
func (m *Manager) Detach(ctx context.Context, userID, invoiceID string) (*recordstore.Invoice, error) {
	inv, err := m.stores.Invoices.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.HasPDF() {
		return nil, ErrNoPDFAttached
	}

	updated, err := m.stores.Invoices.UpdateInvoicePDF(ctx, userID, inv.ID, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	m.notify(userID)
	logger.Audit("user %s detached PDF from invoice %s", userID, inv.ID)
	return updated, nil
}

// ViewURL signs a time-limited link for a PDF the caller owns. Paths
// outside the caller's namespace are refused before touching storage.
func (m *Manager) ViewURL(ctx context.Context, userID, path string) (string, error) {
	if !strings.HasPrefix(path, objectstore.PDFPrefix(userID)) {
		return "", ErrPathNotOwned
	}
	url, err := m.objects.SignedURL(ctx, path, config.PDFViewURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign view url for %s: %w", path, err)
	}
	return url, nil
}

func (m *Manager) notify(userID string) {
	if m.notifier != nil {
		m.notifier.Notify(userID)
	}
}
