package ingestion

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/recordstore"
)

// Notifier receives a ping after record writes so live views re-read.
type Notifier interface {
	Notify(userID string)
}

// Controller turns a parsed file into persisted invoice records. Batches
// run sequentially; rows inside a batch are written concurrently and every
// row settles on its own, so one row's failure never aborts its siblings.
type Controller struct {
	stores     recordstore.Stores
	notifier   Notifier
	onProgress func(percent int)
	batchSize  int
}

func NewController(stores recordstore.Stores, notifier Notifier, onProgress func(percent int)) *Controller {
	return &Controller{
		stores:     stores,
		notifier:   notifier,
		onProgress: onProgress,
		batchSize:  config.IngestBatchSize,
	}
}

// Result summarizes one ingestion run.
type Result struct {
	Job            *recordstore.UploadJob `json:"job"`
	TotalRows      int                    `json:"total_rows"`
	SuccessfulRows int                    `json:"successful_rows"`
	FailedRows     int                    `json:"failed_rows"`
	Errors         []string               `json:"errors,omitempty"`
}

// Ingest creates the upload job, validates every row up front, then writes
// invoices in batches. Invalid rows are persisted too, carrying their error
// list, so they stay reviewable on the dashboard; they count as failed rows.
// The terminal status is FAILED only when no row succeeded and the file had
// rows; partial success still completes, with the shortfall visible in the
// counts and error summary.
func (c *Controller) Ingest(ctx context.Context, userID, fileName string, fileType recordstore.FileType, sourcePath, fileHash string, data []byte) (*Result, error) {
	job, err := c.stores.Jobs.CreateJob(ctx, &recordstore.UploadJob{
		UserID:     userID,
		FileName:   fileName,
		FileType:   fileType,
		Status:     recordstore.JobProcessing,
		SourcePath: sourcePath,
		FileHash:   fileHash,
		StartedAt:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create upload job: %w", err)
	}
	c.notify(userID)

	records, err := Parse(fileType, data)
	if err != nil {
		c.markFailed(job, err.Error())
		return nil, err
	}

	// The whole file is validated before the first write.
	rows := make([]ValidatedRow, len(records))
	var runErrors []string
	for i, rec := range records {
		rows[i] = Validate(rec)
		if !rows[i].IsValid {
			runErrors = append(runErrors, rows[i].Errors...)
		}
	}

	uploadDate := time.Now().Format("2006-01-02")
	total := len(rows)
	successful := 0
	processed := 0

	for start := 0; start < total; start += c.batchSize {
		if err := ctx.Err(); err != nil {
			c.markFailed(job, err.Error())
			return nil, fmt.Errorf("ingestion aborted: %w", err)
		}
		end := start + c.batchSize
		if end > total {
			end = total
		}
		batch := rows[start:end]

		createErrs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inv := buildInvoice(userID, job.ID, uploadDate, batch[i])
				_, createErr := c.stores.Invoices.CreateInvoice(ctx, &inv)
				createErrs[i] = createErr
			}(i)
		}
		wg.Wait()

		for i, row := range batch {
			if createErrs[i] != nil {
				runErrors = append(runErrors, fmt.Sprintf("Row %d: %s", row.RowNumber, storeReason(createErrs[i])))
				continue
			}
			if row.IsValid {
				successful++
			}
		}

		processed += len(batch)

		// Between batches the job row carries the running counts, so a
		// watcher sees them grow instead of jumping at the end. The final
		// batch is covered by the terminal update below.
		if end < total {
			job.TotalRows = total
			job.SuccessfulRows = successful
			job.FailedRows = processed - successful
			if updated, err := c.stores.Jobs.UpdateJob(ctx, job); err != nil {
				log.Printf("[ERROR] ingestion: progress update for job %s: %v", job.ID, err)
			} else {
				job = updated
			}
			c.notify(userID)
		}
		c.emit(processed * 100 / total)
	}
	c.emit(100)

	failed := total - successful
	status := recordstore.JobCompleted
	if successful == 0 && total > 0 {
		status = recordstore.JobFailed
	}
	now := time.Now()
	job.Status = status
	job.TotalRows = total
	job.SuccessfulRows = successful
	job.FailedRows = failed
	job.CompletedAt = &now
	if len(runErrors) > 0 {
		summary := summarize(runErrors)
		job.ErrorSummary = &summary
	}
	if updated, err := c.stores.Jobs.UpdateJob(ctx, job); err != nil {
		// The row outcomes already happened; log the finalize failure
		// instead of undoing or retrying them.
		log.Printf("[ERROR] ingestion: finalize job %s failed: %v", job.ID, err)
	} else {
		job = updated
	}
	c.notify(userID)

	return &Result{
		Job:            job,
		TotalRows:      total,
		SuccessfulRows: successful,
		FailedRows:     failed,
		Errors:         runErrors,
	}, nil
}

// markFailed is best-effort: its own failure is logged and swallowed. It
// runs on a fresh context so a dead request context cannot block it.
func (c *Controller) markFailed(job *recordstore.UploadJob, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	job.Status = recordstore.JobFailed
	job.ErrorSummary = &reason
	job.CompletedAt = &now
	if _, err := c.stores.Jobs.UpdateJob(ctx, job); err != nil {
		log.Printf("[ERROR] ingestion: mark job %s FAILED: %v", job.ID, err)
	}
	c.notify(job.UserID)
}

func (c *Controller) emit(pct int) {
	if c.onProgress != nil {
		c.onProgress(pct)
	}
}

func (c *Controller) notify(userID string) {
	if c.notifier != nil {
		c.notifier.Notify(userID)
	}
}

func buildInvoice(userID, jobID, uploadDate string, row ValidatedRow) recordstore.Invoice {
	errs := append([]string{}, row.Errors...)
	return recordstore.Invoice{
		UserID:           userID,
		InvoiceID:        row.InvoiceID,
		SellerID:         row.SellerID,
		DebtorID:         row.DebtorID,
		Currency:         row.Currency,
		Amount:           row.Amount,
		Product:          row.Product,
		IssueDate:        row.IssueDate,
		DueDate:          row.DueDate,
		UploadDate:       uploadDate,
		UploadJobID:      jobID,
		IsValid:          row.IsValid,
		ValidationErrors: errs,
	}
}

func storeReason(err error) string {
	if msg := recordstore.FriendlyMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

// summarize caps the run's error list to a short sample with a trailing
// count of what was omitted.
func summarize(errs []string) string {
	if len(errs) <= config.ErrorSampleSize {
		return strings.Join(errs, "; ")
	}
	sample := strings.Join(errs[:config.ErrorSampleSize], "; ")
	return fmt.Sprintf("%s; ... and %d more errors", sample, len(errs)-config.ErrorSampleSize)
}
