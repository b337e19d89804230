package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStores is an in-memory implementation of the three collection stores.
// It backs tests and local runs without Postgres. The hook fields let tests
// fail individual operations: a non-nil hook runs before the operation and
// its error, if any, is returned as the operation's result.
type MemStores struct {
	mu        sync.Mutex
	jobs      map[string]UploadJob
	invoices  map[string]Invoice
	submitted map[string]SubmittedInvoice

	CreateJobErr        func(job *UploadJob) error
	UpdateJobErr        func(job *UploadJob) error
	DeleteJobErr        func(id string) error
	CreateInvoiceErr    func(inv *Invoice) error
	UpdateInvoiceErr    func(id string) error
	DeleteInvoiceErr    func(id string) error
	CreateSubmittedErr  func(sub *SubmittedInvoice) error
}

func NewMemStores() *MemStores {
	return &MemStores{
		jobs:      make(map[string]UploadJob),
		invoices:  make(map[string]Invoice),
		submitted: make(map[string]SubmittedInvoice),
	}
}

// Stores returns the interface bundle backed by this implementation.
func (m *MemStores) Stores() Stores {
	return Stores{Jobs: m, Invoices: m, Submitted: m}
}

// ---------------------------------------------------------------------------
// Upload jobs
// ---------------------------------------------------------------------------

func (m *MemStores) CreateJob(_ context.Context, job *UploadJob) (*UploadJob, error) {
	if m.CreateJobErr != nil {
		if err := m.CreateJobErr(job); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneJob(*job)
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	m.jobs[cp.ID] = cp
	out := cloneJob(cp)
	return &out, nil
}

func (m *MemStores) UpdateJob(_ context.Context, job *UploadJob) (*UploadJob, error) {
	if m.UpdateJobErr != nil {
		if err := m.UpdateJobErr(job); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.jobs[job.ID]
	if !ok || existing.UserID != job.UserID {
		return nil, ErrNotFound
	}
	if !existing.Status.CanTransition(job.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, existing.Status, job.Status)
	}
	cp := cloneJob(*job)
	cp.FileName = existing.FileName
	cp.FileType = existing.FileType
	cp.SourcePath = existing.SourcePath
	cp.FileHash = existing.FileHash
	cp.StartedAt = existing.StartedAt
	m.jobs[cp.ID] = cp
	out := cloneJob(cp)
	return &out, nil
}

func (m *MemStores) DeleteJob(_ context.Context, userID, id string) error {
	if m.DeleteJobErr != nil {
		if err := m.DeleteJobErr(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.jobs[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *MemStores) GetJob(_ context.Context, userID, id string) (*UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.jobs[id]
	if !ok || existing.UserID != userID {
		return nil, ErrNotFound
	}
	out := cloneJob(existing)
	return &out, nil
}

func (m *MemStores) ListJobs(_ context.Context, userID string, f JobFilter) ([]UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []UploadJob
	for _, job := range m.jobs {
		if job.UserID != userID {
			continue
		}
		if f.SourcePath != "" && job.SourcePath != f.SourcePath {
			continue
		}
		if f.FileHash != "" && job.FileHash != f.FileHash {
			continue
		}
		if f.Status != "" && job.Status != f.Status {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStores) ListStaleJobs(_ context.Context, olderThan time.Time) ([]UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []UploadJob
	for _, job := range m.jobs {
		if job.Status != JobProcessing || !job.StartedAt.Before(olderThan) {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

func (m *MemStores) CreateInvoice(_ context.Context, inv *Invoice) (*Invoice, error) {
	if m.CreateInvoiceErr != nil {
		if err := m.CreateInvoiceErr(inv); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneInvoice(*inv)
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.ValidationErrors == nil {
		cp.ValidationErrors = []string{}
	}
	m.invoices[cp.ID] = cp
	out := cloneInvoice(cp)
	return &out, nil
}

func (m *MemStores) UpdateInvoicePDF(_ context.Context, userID, id string, pdfPath, pdfFileName *string, attachedAt *time.Time) (*Invoice, error) {
	if m.UpdateInvoiceErr != nil {
		if err := m.UpdateInvoiceErr(id); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.invoices[id]
	if !ok || existing.UserID != userID {
		return nil, ErrNotFound
	}
	existing.PDFPath = clonePtr(pdfPath)
	existing.PDFFileName = clonePtr(pdfFileName)
	existing.PDFAttachedAt = cloneTimePtr(attachedAt)
	m.invoices[id] = existing
	out := cloneInvoice(existing)
	return &out, nil
}

func (m *MemStores) DeleteInvoice(_ context.Context, userID, id string) error {
	if m.DeleteInvoiceErr != nil {
		if err := m.DeleteInvoiceErr(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.invoices[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *MemStores) GetInvoice(_ context.Context, userID, id string) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.invoices[id]
	if !ok || existing.UserID != userID {
		return nil, ErrNotFound
	}
	out := cloneInvoice(existing)
	return &out, nil
}

func (m *MemStores) ListInvoices(_ context.Context, userID string, f InvoiceFilter) ([]Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Invoice
	for _, inv := range m.invoices {
		if inv.UserID != userID {
			continue
		}
		if f.UploadJobID != "" && inv.UploadJobID != f.UploadJobID {
			continue
		}
		if f.OnlyValid && !inv.IsValid {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Submitted invoices
// ---------------------------------------------------------------------------

func (m *MemStores) CreateSubmitted(_ context.Context, sub *SubmittedInvoice) (*SubmittedInvoice, error) {
	if m.CreateSubmittedErr != nil {
		if err := m.CreateSubmittedErr(sub); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneSubmitted(*sub)
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.SubmittedAt.IsZero() {
		cp.SubmittedAt = time.Now()
	}
	if cp.SubmittedDate == "" {
		cp.SubmittedDate = cp.SubmittedAt.Format("2006-01-02")
	}
	m.submitted[cp.ID] = cp
	out := cloneSubmitted(cp)
	return &out, nil
}

func (m *MemStores) ListSubmitted(_ context.Context, userID string) ([]SubmittedInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SubmittedInvoice
	for _, sub := range m.submitted {
		if sub.UserID != userID {
			continue
		}
		out = append(out, cloneSubmitted(sub))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// JobCount reports the total stored jobs across all users.
func (m *MemStores) JobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *MemStores) InvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

func (m *MemStores) SubmittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submitted)
}

func cloneJob(job UploadJob) UploadJob {
	cp := job
	cp.ErrorSummary = clonePtr(job.ErrorSummary)
	cp.CompletedAt = cloneTimePtr(job.CompletedAt)
	return cp
}

func cloneInvoice(inv Invoice) Invoice {
	cp := inv
	if inv.ValidationErrors != nil {
		cp.ValidationErrors = append([]string(nil), inv.ValidationErrors...)
	}
	cp.PDFPath = clonePtr(inv.PDFPath)
	cp.PDFFileName = clonePtr(inv.PDFFileName)
	cp.PDFAttachedAt = cloneTimePtr(inv.PDFAttachedAt)
	return cp
}

func cloneSubmitted(sub SubmittedInvoice) SubmittedInvoice {
	cp := sub
	cp.PDFPath = clonePtr(sub.PDFPath)
	cp.PDFFileName = clonePtr(sub.PDFFileName)
	cp.PDFAttachedAt = cloneTimePtr(sub.PDFAttachedAt)
	return cp
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
