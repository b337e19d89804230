package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ObjectInfo describes one stored object in a prefix listing.
type ObjectInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ProgressFunc receives transfer progress as a whole percentage. Callers
// may pass nil when they do not care.
type ProgressFunc func(percent int)

// Storage is the object-store surface the invoice service consumes.
// Paths are opaque keys namespaced per owning user by the key builders.
type Storage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string, onProgress ProgressFunc) (string, error)
	SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// progressReader reports read position as a monotonically non-decreasing
// percentage. It keeps Seek so SDK retries and signing still work.
type progressReader struct {
	r       *bytes.Reader
	total   int64
	onStep  ProgressFunc
	lastPct int
}

func newProgressReader(data []byte, onStep ProgressFunc) *progressReader {
	return &progressReader{r: bytes.NewReader(data), total: int64(len(data)), onStep: onStep}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.emit()
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil && whence == 0 && offset == 0 {
		// rewind for a retry; progress stays where it was so the
		// reported percentage never regresses
		return pos, nil
	}
	return pos, err
}

func (p *progressReader) emit() {
	if p.onStep == nil || p.total <= 0 {
		return
	}
	pos := p.total - int64(p.r.Len())
	pct := int(pos * 100 / p.total)
	if pct > p.lastPct {
		p.lastPct = pct
		p.onStep(pct)
	}
}

func detectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	if len(data) > 512 {
		return http.DetectContentType(data[:512])
	}
	return http.DetectContentType(data)
}

func sanitizePathSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return replacer.Replace(s)
}

const (
	invoiceFilePrefix = "invoices/"
	pdfPrefix         = "pdfs/"
)

// InvoiceFilePrefix returns the listing prefix for a user's uploaded
// source files.
func InvoiceFilePrefix(userID string) string {
	return invoiceFilePrefix + sanitizePathSegment(userID) + "/"
}

// PDFPrefix returns the listing prefix for a user's evidence PDFs.
func PDFPrefix(userID string) string {
	return pdfPrefix + sanitizePathSegment(userID) + "/"
}

// BuildInvoiceFileKey namespaces an uploaded source file under its owner
// with a millisecond timestamp so re-uploads of the same name never
// collide.
func BuildInvoiceFileKey(userID, fileName string) string {
	return fmt.Sprintf("%s%s/%d_%s", invoiceFilePrefix, sanitizePathSegment(userID),
		time.Now().UnixMilli(), sanitizePathSegment(fileName))
}

// BuildPDFKey namespaces an evidence PDF under its owner and invoice.
func BuildPDFKey(userID, invoiceID, fileName string) string {
	return fmt.Sprintf("%s%s/%s/%d_%s", pdfPrefix, sanitizePathSegment(userID),
		sanitizePathSegment(invoiceID), time.Now().UnixMilli(), sanitizePathSegment(fileName))
}
