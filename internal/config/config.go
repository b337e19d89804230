package config

import "time"

const (
	DefaultTimeZone = "UTC"

	// IngestBatchSize is the number of invoice rows written per batch
	// during file ingestion. Batches run sequentially; rows inside a
	// batch are written concurrently.
	IngestBatchSize = 25

	// ErrorSampleSize caps how many row-level error messages are kept
	// verbatim in a job's error summary before the rest collapse into
	// an "... and N more errors" tail.
	ErrorSampleSize = 3

	// PDFViewURLTTL is the lifetime of signed PDF view links.
	PDFViewURLTTL = time.Hour

	// StaleJobCutoff marks how long a job may sit in PROCESSING before
	// the sweep declares the run dead and fails it.
	StaleJobCutoff = time.Hour

	// DefaultStaleJobSchedule drives the stale-job sweep.
	DefaultStaleJobSchedule = "*/10 * * * *"

	// SSECleanupSchedule drives the sweep of dashboard stream clients
	// whose pings stopped landing.
	SSECleanupSchedule = "@every 5m"

	MaxUploadBytes = 64 << 20
	MaxPDFBytes    = 32 << 20

	DefaultPageLimit = 10
	MaxPageLimit     = 200
)
