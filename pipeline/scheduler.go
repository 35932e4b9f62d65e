package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/models"
)

// DefaultSchedule runs extraction every six hours
const DefaultSchedule = "0 */6 * * *"

// Scheduler runs weekly and daily extraction on a cron schedule
type Scheduler struct {
	runner  *Runner
	domains []models.Domain
	spec    string
	cron    *cron.Cron
	log     *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. An empty spec uses DefaultSchedule.
func NewScheduler(runner *Runner, domains []models.Domain, spec string, log *logrus.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	logger := cron.PrintfLogger(log)
	return &Scheduler{
		runner:  runner,
		domains: domains,
		spec:    spec,
		cron:    cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		log:     log,
	}
}

// Start registers the extraction job and starts the cron loop. Jobs run with
// a context derived from ctx and are cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	jobCtx, cancel := context.WithCancel(ctx)

	_, err := s.cron.AddFunc(s.spec, func() {
		s.log.WithField("schedule", s.spec).Info("Starting scheduled extraction")
		if err := s.RunOnce(jobCtx); err != nil {
			s.log.WithError(err).Error("Scheduled extraction finished with errors")
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"schedule": s.spec,
		"domains":  s.domains,
	}).Info("Scheduler started")
	return nil
}

// RunOnce extracts the weekly then the daily window for every domain
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, tf := range []models.TimeFilter{models.TimeFilterWeek, models.TimeFilterDay} {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.runner.Run(ctx, s.domains, tf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}
