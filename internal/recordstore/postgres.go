package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStores implements the three collection stores on a pgx pool.
type PGStores struct {
	pool *pgxpool.Pool
}

func NewPGStores(pool *pgxpool.Pool) *PGStores {
	return &PGStores{pool: pool}
}

// Stores returns the interface bundle backed by this implementation.
func (s *PGStores) Stores() Stores {
	return Stores{Jobs: s, Invoices: s, Submitted: s}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS upload_jobs (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		status TEXT NOT NULL,
		source_path TEXT NOT NULL,
		file_hash TEXT NOT NULL DEFAULT '',
		total_rows INT NOT NULL DEFAULT 0,
		successful_rows INT NOT NULL DEFAULT 0,
		failed_rows INT NOT NULL DEFAULT 0,
		error_summary TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL DEFAULT '',
		seller_id TEXT NOT NULL DEFAULT '',
		debtor_id TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		product TEXT NOT NULL DEFAULT '',
		issue_date DATE,
		due_date DATE,
		upload_date DATE NOT NULL DEFAULT CURRENT_DATE,
		upload_job_id UUID NOT NULL,
		is_valid BOOLEAN NOT NULL DEFAULT false,
		validation_errors TEXT[] NOT NULL DEFAULT '{}',
		pdf_path TEXT,
		pdf_file_name TEXT,
		pdf_attached_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS submitted_invoices (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL DEFAULT '',
		seller_id TEXT NOT NULL DEFAULT '',
		debtor_id TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		product TEXT NOT NULL DEFAULT '',
		issue_date DATE,
		due_date DATE,
		upload_date DATE,
		pdf_path TEXT,
		pdf_file_name TEXT,
		pdf_attached_at TIMESTAMPTZ,
		submitted_date DATE NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		original_upload_job_id UUID,
		original_invoice_id UUID,
		submitted_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_upload_jobs_user_source ON upload_jobs (user_id, source_path)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_user_job ON invoices (user_id, upload_job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submitted_user ON submitted_invoices (user_id)`,
}

// EnsureSchema creates the three collections and their indexes when they
// do not exist yet, so the service boots against a fresh database. The
// statements go out as one batch round trip.
func (s *PGStores) EnsureSchema(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range schemaStatements {
		batch.Queue(stmt)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range schemaStatements {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FriendlyMessage maps a Postgres error to user-facing text. Empty string
// means the error has no friendly mapping and the caller should use its
// own wording.
func FriendlyMessage(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	switch pgErr.Code {
	case "23505":
		return "This entry already exists in the system"
	case "23503":
		return "Operation violates data constraints"
	case "23514":
		return "Operation violates data constraints"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Upload jobs
// ---------------------------------------------------------------------------

const jobColumns = `id, user_id, file_name, file_type, status, source_path, file_hash,
	total_rows, successful_rows, failed_rows, error_summary, started_at, completed_at`

func (s *PGStores) CreateJob(ctx context.Context, job *UploadJob) (*UploadJob, error) {
	cp := *job
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO upload_jobs (id, user_id, file_name, file_type, status, source_path, file_hash,
			total_rows, successful_rows, failed_rows, error_summary, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		cp.ID, cp.UserID, cp.FileName, string(cp.FileType), string(cp.Status), cp.SourcePath, cp.FileHash,
		cp.TotalRows, cp.SuccessfulRows, cp.FailedRows, cp.ErrorSummary, cp.StartedAt, cp.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create upload job: %w", err)
	}
	return &cp, nil
}

// UpdateJob enforces the status transition rules under a row lock so two
// writers racing on the same job cannot both pass the check.
func (s *PGStores) UpdateJob(ctx context.Context, job *UploadJob) (*UploadJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update of upload job %s: %w", job.ID, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM upload_jobs WHERE id=$1 AND user_id=$2 FOR UPDATE`,
		job.ID, job.UserID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock upload job %s: %w", job.ID, err)
	}
	if !JobStatus(current).CanTransition(job.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, job.Status)
	}

	cp := *job
	_, err = tx.Exec(ctx, `
		UPDATE upload_jobs
		SET status=$1, total_rows=$2, successful_rows=$3, failed_rows=$4,
			error_summary=$5, completed_at=$6
		WHERE id=$7 AND user_id=$8`,
		string(cp.Status), cp.TotalRows, cp.SuccessfulRows, cp.FailedRows,
		cp.ErrorSummary, cp.CompletedAt, cp.ID, cp.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update upload job %s: %w", cp.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update of upload job %s: %w", cp.ID, err)
	}
	committed = true
	return &cp, nil
}

func (s *PGStores) DeleteJob(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM upload_jobs WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete upload job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStores) GetJob(ctx context.Context, userID, id string) (*UploadJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM upload_jobs WHERE id=$1 AND user_id=$2`, id, userID)
	return scanJob(row)
}

func (s *PGStores) ListJobs(ctx context.Context, userID string, f JobFilter) ([]UploadJob, error) {
	query := `SELECT ` + jobColumns + ` FROM upload_jobs WHERE user_id=$1`
	args := []interface{}{userID}
	if f.SourcePath != "" {
		args = append(args, f.SourcePath)
		query += fmt.Sprintf(" AND source_path=$%d", len(args))
	}
	if f.FileHash != "" {
		args = append(args, f.FileHash)
		query += fmt.Sprintf(" AND file_hash=$%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY started_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list upload jobs: %w", err)
	}
	defer rows.Close()

	var out []UploadJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// ListStaleJobs returns jobs still marked processing that started before
// the cutoff, across all users. Only the background sweep calls this.
func (s *PGStores) ListStaleJobs(ctx context.Context, olderThan time.Time) ([]UploadJob, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+jobColumns+` FROM upload_jobs WHERE status=$1 AND started_at < $2 ORDER BY started_at, id`,
		string(JobProcessing), olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stale upload jobs: %w", err)
	}
	defer rows.Close()

	var out []UploadJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*UploadJob, error) {
	var job UploadJob
	var fileType, status string
	err := row.Scan(&job.ID, &job.UserID, &job.FileName, &fileType, &status, &job.SourcePath, &job.FileHash,
		&job.TotalRows, &job.SuccessfulRows, &job.FailedRows, &job.ErrorSummary, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan upload job: %w", err)
	}
	job.FileType = FileType(fileType)
	job.Status = JobStatus(status)
	return &job, nil
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

const invoiceColumns = `id, user_id, invoice_id, seller_id, debtor_id, currency, amount::text, product,
	COALESCE(TO_CHAR(issue_date,'YYYY-MM-DD'),''), COALESCE(TO_CHAR(due_date,'YYYY-MM-DD'),''),
	COALESCE(TO_CHAR(upload_date,'YYYY-MM-DD'),''), upload_job_id, is_valid, validation_errors,
	pdf_path, pdf_file_name, pdf_attached_at, created_at`

func (s *PGStores) CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	cp := *inv
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.ValidationErrors == nil {
		cp.ValidationErrors = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invoices (id, user_id, invoice_id, seller_id, debtor_id, currency, amount, product,
			issue_date, due_date, upload_date, upload_job_id, is_valid, validation_errors,
			pdf_path, pdf_file_name, pdf_attached_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		cp.ID, cp.UserID, cp.InvoiceID, cp.SellerID, cp.DebtorID, cp.Currency, cp.Amount.String(), cp.Product,
		nilIfEmptyDate(cp.IssueDate), nilIfEmptyDate(cp.DueDate), nilIfEmptyDate(cp.UploadDate),
		cp.UploadJobID, cp.IsValid, cp.ValidationErrors,
		cp.PDFPath, cp.PDFFileName, cp.PDFAttachedAt, cp.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &cp, nil
}

func (s *PGStores) UpdateInvoicePDF(ctx context.Context, userID, id string, pdfPath, pdfFileName *string, attachedAt *time.Time) (*Invoice, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE invoices
		SET pdf_path=$1, pdf_file_name=$2, pdf_attached_at=$3
		WHERE id=$4 AND user_id=$5
		RETURNING `+invoiceColumns,
		pdfPath, pdfFileName, attachedAt, id, userID,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *PGStores) DeleteInvoice(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStores) GetInvoice(ctx context.Context, userID, id string) (*Invoice, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 AND user_id=$2`, id, userID)
	return scanInvoice(row)
}

func (s *PGStores) ListInvoices(ctx context.Context, userID string, f InvoiceFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id=$1`
	args := []interface{}{userID}
	if f.UploadJobID != "" {
		args = append(args, f.UploadJobID)
		query += fmt.Sprintf(" AND upload_job_id=$%d", len(args))
	}
	if f.OnlyValid {
		query += " AND is_valid = true"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	var amount string
	err := row.Scan(&inv.ID, &inv.UserID, &inv.InvoiceID, &inv.SellerID, &inv.DebtorID, &inv.Currency,
		&amount, &inv.Product, &inv.IssueDate, &inv.DueDate, &inv.UploadDate, &inv.UploadJobID,
		&inv.IsValid, &inv.ValidationErrors, &inv.PDFPath, &inv.PDFFileName, &inv.PDFAttachedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("parse invoice amount %q: %w", amount, err)
	}
	inv.Amount = dec
	return &inv, nil
}

// ---------------------------------------------------------------------------
// Submitted invoices
// ---------------------------------------------------------------------------

const submittedColumns = `id, user_id, invoice_id, seller_id, debtor_id, currency, amount::text, product,
	COALESCE(TO_CHAR(issue_date,'YYYY-MM-DD'),''), COALESCE(TO_CHAR(due_date,'YYYY-MM-DD'),''),
	COALESCE(TO_CHAR(upload_date,'YYYY-MM-DD'),''), pdf_path, pdf_file_name, pdf_attached_at,
	COALESCE(TO_CHAR(submitted_date,'YYYY-MM-DD'),''), submitted_at, original_upload_job_id,
	original_invoice_id, submitted_by`

func (s *PGStores) CreateSubmitted(ctx context.Context, sub *SubmittedInvoice) (*SubmittedInvoice, error) {
	cp := *sub
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.SubmittedAt.IsZero() {
		cp.SubmittedAt = time.Now()
	}
	if cp.SubmittedDate == "" {
		cp.SubmittedDate = cp.SubmittedAt.Format("2006-01-02")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submitted_invoices (id, user_id, invoice_id, seller_id, debtor_id, currency, amount,
			product, issue_date, due_date, upload_date, pdf_path, pdf_file_name, pdf_attached_at,
			submitted_date, submitted_at, original_upload_job_id, original_invoice_id, submitted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		cp.ID, cp.UserID, cp.InvoiceID, cp.SellerID, cp.DebtorID, cp.Currency, cp.Amount.String(),
		cp.Product, nilIfEmptyDate(cp.IssueDate), nilIfEmptyDate(cp.DueDate), nilIfEmptyDate(cp.UploadDate),
		cp.PDFPath, cp.PDFFileName, cp.PDFAttachedAt,
		cp.SubmittedDate, cp.SubmittedAt, nilIfEmpty(cp.OriginalUploadJobID), nilIfEmpty(cp.OriginalInvoiceID), cp.SubmittedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("create submitted invoice: %w", err)
	}
	return &cp, nil
}

func (s *PGStores) ListSubmitted(ctx context.Context, userID string) ([]SubmittedInvoice, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+submittedColumns+` FROM submitted_invoices WHERE user_id=$1 ORDER BY submitted_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list submitted invoices: %w", err)
	}
	defer rows.Close()

	var out []SubmittedInvoice
	for rows.Next() {
		var sub SubmittedInvoice
		var amount string
		var origJob, origInv *string
		err := rows.Scan(&sub.ID, &sub.UserID, &sub.InvoiceID, &sub.SellerID, &sub.DebtorID, &sub.Currency,
			&amount, &sub.Product, &sub.IssueDate, &sub.DueDate, &sub.UploadDate,
			&sub.PDFPath, &sub.PDFFileName, &sub.PDFAttachedAt,
			&sub.SubmittedDate, &sub.SubmittedAt, &origJob, &origInv, &sub.SubmittedBy)
		if err != nil {
			return nil, fmt.Errorf("scan submitted invoice: %w", err)
		}
		dec, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("parse submitted amount %q: %w", amount, err)
		}
		sub.Amount = dec
		if origJob != nil {
			sub.OriginalUploadJobID = *origJob
		}
		if origInv != nil {
			sub.OriginalInvoiceID = *origInv
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func nilIfEmptyDate(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nilIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
