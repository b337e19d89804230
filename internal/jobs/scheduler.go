package jobs

import (
	"fmt"
	"log"

	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/dashboard"
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/serviceiface"

	"github.com/robfig/cron/v3"
)

type CronService struct {
	config map[string]interface{}
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}) serviceiface.Service {
	return &CronService{
		config: cfg,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("[INFO] Starting cron service...")

	sweepConfig := NewDefaultStaleJobConfig()

	// Override sweep config from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["stale_job_schedule"].(string); ok && schedule != "" {
			sweepConfig.Schedule = schedule
		}
		if tz, ok := s.config["time_zone"].(string); ok && tz != "" {
			sweepConfig.TimeZone = tz
		}
	}

	c, err := RunStaleJobSweeper(sweepConfig)
	if err != nil {
		return fmt.Errorf("failed to start stale job sweeper: %v", err)
	}

	// Ping failures drop a stream client immediately; this catches the
	// quieter case where pings keep landing in a dead TCP buffer.
	if _, err := c.AddFunc(config.SSECleanupSchedule, func() {
		if sse := dashboard.GetSSEServer(); sse != nil {
			sse.CleanupDeadConnections()
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule stream client cleanup: %v", err)
	}
	s.cron = c

	logger.GlobalLogger.LogAudit("Cron service started with stale job sweeper")
	log.Println("Cron service started — Stale Job Sweeper scheduled")

	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Println("Cron service stopped.")
	return nil
}
