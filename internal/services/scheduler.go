package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService drives the abandoned-payment sweeps: a frequent pass for
// recently abandoned payments and a daily pass that catches anything the
// frequent one missed.
type SchedulerService struct {
	payments *PaymentService
	cron     *cron.Cron
}

func NewSchedulerService(payments *PaymentService) *SchedulerService {
	return &SchedulerService{
		payments: payments,
		cron:     cron.New(),
	}
}

// Start registers the sweep jobs and starts the scheduler. Jobs run in the
// cron goroutine with their own timeout contexts.
func (s *SchedulerService) Start() error {
	_, err := s.cron.AddFunc("@every 10m", func() {
		s.runSweep("scheduled", 30)
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc("0 2 * * *", func() {
		s.runSweep("daily", 1440)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Payment cleanup scheduler started: every 10 minutes (30m threshold), daily at 2AM (24h threshold)")
	return nil
}

// Stop halts the scheduler. Running jobs finish; no new ones fire.
func (s *SchedulerService) Stop() {
	s.cron.Stop()
}

func (s *SchedulerService) runSweep(kind string, timeoutMinutes int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.payments.CancelAbandonedPayments(ctx, timeoutMinutes)
	if err != nil {
		log.Printf("Error in %s payment cleanup: %v", kind, err)
		return
	}
	log.Printf("%s payment cleanup: found=%d cancelled=%d", kind, result.TotalFound, result.TotalCancelled)
}

// TriggerManualCleanup runs one sweep with the given timeout, outside the
// cron schedule.
func (s *SchedulerService) TriggerManualCleanup(ctx context.Context, timeoutMinutes int) (*SweepResult, error) {
	log.Printf("Manually triggering payment cleanup with %d minute timeout", timeoutMinutes)
	return s.payments.CancelAbandonedPayments(ctx, timeoutMinutes)
}
