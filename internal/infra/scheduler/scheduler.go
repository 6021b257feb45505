package scheduler

import (
	"context"
	"fmt"
	"time"

	"degree_plan_review/internal/domain/review"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepTimeout = 5 * time.Minute

// Reclassifier is the maintenance operation run on schedule.
type Reclassifier interface {
	ReclassifyPendingMentorRequests(ctx context.Context) ([]*review.Request, error)
}

type ReclassifyScheduler struct {
	cronEngine   *cron.Cron
	reclassifier Reclassifier
	logger       *logrus.Entry
	cronSpec     string // e.g. "0 3 * * *" (03:00 daily)
}

func NewReclassifyScheduler(reclassifier Reclassifier, logger *logrus.Entry, cronSpec string) *ReclassifyScheduler {
	return &ReclassifyScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		reclassifier: reclassifier,
		logger:       logger,
		cronSpec:     cronSpec,
	}
}

// Start registers the sweep job and starts the cron engine.
func (s *ReclassifyScheduler) Start() error {
	s.logger.Info("Starting reclassification scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runSweep); err != nil {
		return fmt.Errorf("add reclassification cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Reclassification scheduler started.")
	return nil
}

func (s *ReclassifyScheduler) runSweep() {
	s.logger.Info("Cron job triggered for pending mentor request reclassification.")
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	updated, err := s.reclassifier.ReclassifyPendingMentorRequests(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during reclassification sweep")
		return
	}
	s.logger.WithField("updated", len(updated)).Info("Reclassification sweep finished.")
}

func (s *ReclassifyScheduler) Stop() {
	s.logger.Info("Stopping reclassification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reclassification scheduler gracefully stopped.")
}
