package files

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/objectstore"
	"InvoiceDesk/internal/recordstore"
)

// ErrPathNotOwned rejects a source path outside the caller's namespace.
var ErrPathNotOwned = errors.New("path does not belong to the caller")

// OrphanRiskError reports invoice deletions that failed while their owning
// job still exists. The job is deliberately left in place so the surviving
// invoices stay reachable.
type OrphanRiskError struct {
	Failed int
	Total  int
	JobID  string
}

func (e *OrphanRiskError) Error() string {
	return fmt.Sprintf("failed to delete %d of %d invoices", e.Failed, e.Total)
}

// Notifier receives a ping after record writes so live views re-read.
type Notifier interface {
	Notify(userID string)
}

// Coordinator removes an uploaded file and everything derived from it, in
// an order that never leaves an invoice without its job or a job without
// its source file: invoices first, then the job, then the storage object.
type Coordinator struct {
	stores   recordstore.Stores
	objects  objectstore.Storage
	cache    *Cache
	notifier Notifier
}

func NewCoordinator(stores recordstore.Stores, objects objectstore.Storage, cache *Cache, notifier Notifier) *Coordinator {
	return &Coordinator{stores: stores, objects: objects, cache: cache, notifier: notifier}
}

// Result counts what one DeleteFile call removed.
type Result struct {
	JobsDeleted     int `json:"jobs_deleted"`
	InvoicesDeleted int `json:"invoices_deleted"`
}

// DeleteFile tears down every job recorded against the source path. Each
// step is a precondition for the next; a failure aborts before the
// following step runs.
func (c *Coordinator) DeleteFile(ctx context.Context, userID, sourcePath string) (*Result, error) {
	if !strings.HasPrefix(sourcePath, objectstore.InvoiceFilePrefix(userID)) {
		return nil, ErrPathNotOwned
	}
	jobs, err := c.stores.Jobs.ListJobs(ctx, userID, recordstore.JobFilter{SourcePath: sourcePath})
	if err != nil {
		return nil, fmt.Errorf("find jobs for %s: %w", sourcePath, err)
	}

	result := &Result{}
	for i := range jobs {
		job := &jobs[i]
		deleted, err := c.deleteJobRecords(ctx, userID, job)
		result.InvoicesDeleted += deleted
		if err != nil {
			return result, err
		}
		result.JobsDeleted++
	}

	if err := c.objects.Delete(ctx, sourcePath); err != nil {
		return result, fmt.Errorf("delete stored file %s: %w", sourcePath, err)
	}

	if c.cache != nil {
		c.cache.Invalidate(userID)
	}
	if c.notifier != nil {
		c.notifier.Notify(userID)
	}
	logger.Audit("user %s deleted file %s (%d jobs, %d invoices)", userID, sourcePath, result.JobsDeleted, result.InvoicesDeleted)
	return result, nil
}

// deleteJobRecords removes a job's invoices concurrently, waiting for all
// of them to settle, then removes the job itself. Any invoice failure
// keeps the job alive and surfaces an OrphanRiskError.
func (c *Coordinator) deleteJobRecords(ctx context.Context, userID string, job *recordstore.UploadJob) (int, error) {
	invoices, err := c.stores.Invoices.ListInvoices(ctx, userID, recordstore.InvoiceFilter{UploadJobID: job.ID})
	if err != nil {
		return 0, fmt.Errorf("find invoices for job %s: %w", job.ID, err)
	}

	deleteErrs := make([]error, len(invoices))
	var wg sync.WaitGroup
	for i := range invoices {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deleteErrs[i] = c.stores.Invoices.DeleteInvoice(ctx, userID, invoices[i].ID)
		}(i)
	}
	wg.Wait()

	failed := 0
	deleted := 0
	for _, derr := range deleteErrs {
		if derr != nil {
			failed++
		} else {
			deleted++
		}
	}
	if failed > 0 {
		return deleted, &OrphanRiskError{Failed: failed, Total: len(invoices), JobID: job.ID}
	}

	if err := c.stores.Jobs.DeleteJob(ctx, userID, job.ID); err != nil {
		return deleted, fmt.Errorf("delete job %s: %w", job.ID, err)
	}
	return deleted, nil
}
