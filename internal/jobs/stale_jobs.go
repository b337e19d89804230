package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/notification"
	"InvoiceDesk/internal/recordstore"

	"github.com/robfig/cron/v3"
)

// staleJobSummary is written into a job's error summary when the sweep
// fails it.
const staleJobSummary = "ingestion timed out"

// StaleJobConfig drives the sweep that fails ingestion jobs left in
// PROCESSING after their worker died without reporting back.
type StaleJobConfig struct {
	Schedule string
	Cutoff   time.Duration
	TimeZone string
}

func NewDefaultStaleJobConfig() *StaleJobConfig {
	return &StaleJobConfig{
		Schedule: config.DefaultStaleJobSchedule,
		Cutoff:   config.StaleJobCutoff,
		TimeZone: config.DefaultTimeZone,
	}
}

// Notifier pings a user's live dashboard feed after records change.
type Notifier interface {
	Notify(userID string)
}

func RunStaleJobSweeper(cfg *StaleJobConfig) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultStaleJobSchedule
	}
	if cfg.Cutoff <= 0 {
		cfg.Cutoff = config.StaleJobCutoff
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone for stale job sweeper: %v", err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Running stale job sweep at %s", time.Now().In(loc)))

		// The record hub is owned by the invoice service; resolve it per
		// tick so the sweep survives service restarts and start ordering.
		hub := recordstore.GlobalHub()
		if hub == nil {
			logger.GlobalLogger.LogAudit("Stale job sweep skipped: record stores not ready")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().Add(-cfg.Cutoff)
		swept, err := SweepStaleJobs(ctx, hub.Stores(), hub, cutoff)
		if err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Stale job sweep failed: %v", err))
			return
		}
		if len(swept) == 0 {
			return
		}
		for i := range swept {
			notification.Push(swept[i].UserID, notification.TypeSweep,
				fmt.Sprintf("upload %s timed out and was marked failed", swept[i].FileName))
		}
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Stale job sweep failed %d stuck jobs", len(swept)))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule stale job sweep: %v", err)
	}

	c.Start()
	logger.GlobalLogger.LogAudit("Stale Job Sweep scheduled for " + cfg.Schedule + " (" + cfg.TimeZone + ")")
	return c, nil
}

// SweepStaleJobs fails every job still PROCESSING since before cutoff,
// stamping the timeout summary and a completion time, and pings the
// notifier once per affected user. A job the store refuses to update
// is skipped so one bad row never stalls the rest of the sweep; the
// first such error is returned alongside the jobs that were swept.
func SweepStaleJobs(ctx context.Context, stores recordstore.Stores, notifier Notifier, cutoff time.Time) ([]recordstore.UploadJob, error) {
	stale, err := stores.Jobs.ListStaleJobs(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}

	var (
		swept    []recordstore.UploadJob
		users    = make(map[string]bool)
		firstErr error
	)
	for i := range stale {
		job := stale[i]
		now := time.Now().UTC()
		summary := staleJobSummary
		job.Status = recordstore.JobFailed
		job.ErrorSummary = &summary
		job.CompletedAt = &now

		updated, err := stores.Jobs.UpdateJob(ctx, &job)
		if err != nil {
			log.Printf("[ERROR] stale sweep: job %s not failed: %v", job.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		swept = append(swept, *updated)
		users[updated.UserID] = true
	}

	if notifier != nil {
		for userID := range users {
			notifier.Notify(userID)
		}
	}
	return swept, firstErr
}
