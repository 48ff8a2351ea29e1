package service

import (
	"context"
	"time"

	"github.com/certflow/certportal-backend/pkg/actor"
	"github.com/certflow/certportal-backend/pkg/logger"
)

// SweepScheduler periodically runs the expiry sweep on the workflow and the
// overdue sweep on billing. Sweeps run as the system actor so their
// transitions and audit entries are attributable.
type SweepScheduler struct {
	workflow *WorkflowService
	billing  *BillingService
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(workflow *WorkflowService, billing *BillingService, interval time.Duration, log *logger.Logger) *SweepScheduler {
	return &SweepScheduler{
		workflow: workflow,
		billing:  billing,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine. A sweep cycle runs
// immediately, then on every tick.
func (s *SweepScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("sweep scheduler started")

		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("sweep scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *SweepScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *SweepScheduler) runCycle(ctx context.Context) {
	start := time.Now()
	ctx = actor.WithActor(ctx, actor.SystemActor())

	expired, err := s.workflow.SweepExpiry(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
	}

	overdue, err := s.billing.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("expiry_transitions", expired).
		Int("overdue_invoices", overdue).
		Msg("sweep cycle completed")
}
