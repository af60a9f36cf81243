package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/pkg/jobs"
)

const (
	jobTypeStatusRefresh  = "status_refresh"
	jobTypeReportsCleanup = "reports_cleanup"
)

// RefreshSchedulerConfig tunes the background schedule.
type RefreshSchedulerConfig struct {
	Enabled         bool
	Schedule        string
	Workers         int
	Retries         int
	CleanupInterval time.Duration
	ReportTTL       time.Duration
}

// RefreshScheduler runs the daily fee status recomputation and periodic
// report cleanup through a worker queue, so a slow run never blocks the
// cron ticker.
type RefreshScheduler struct {
	students *StudentService
	reports  *ReportService
	metrics  *MetricsService
	logger   *zap.Logger
	config   RefreshSchedulerConfig

	cron  *cron.Cron
	queue *jobs.Queue
}

// NewRefreshScheduler constructs the scheduler.
func NewRefreshScheduler(students *StudentService, reports *ReportService, metrics *MetricsService, logger *zap.Logger, config RefreshSchedulerConfig) *RefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Schedule == "" {
		config.Schedule = "15 0 * * *"
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Hour
	}
	if config.ReportTTL <= 0 {
		config.ReportTTL = 24 * time.Hour
	}

	s := &RefreshScheduler{
		students: students,
		reports:  reports,
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
	s.queue = jobs.NewQueue("maintenance", s.handle, jobs.QueueConfig{
		Workers:    config.Workers,
		MaxRetries: config.Retries,
		Logger:     logger,
	})
	return s
}

// Start registers the cron entries and launches the worker pool.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("status refresh scheduler disabled")
		return nil
	}

	s.queue.Start(ctx)

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.enqueue(jobTypeStatusRefresh)
	}); err != nil {
		return err
	}
	if s.reports != nil && s.reports.Enabled() {
		if _, err := s.cron.AddFunc("@every "+s.config.CleanupInterval.String(), func() {
			s.enqueue(jobTypeReportsCleanup)
		}); err != nil {
			return err
		}
	}
	s.cron.Start()

	s.logger.Info("status refresh scheduler started", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop halts the cron ticker and drains the workers.
func (s *RefreshScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.queue.Stop()
}

// TriggerRefresh enqueues an immediate status refresh run.
func (s *RefreshScheduler) TriggerRefresh() error {
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeStatusRefresh})
}

func (s *RefreshScheduler) enqueue(jobType string) {
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType}); err != nil {
		s.logger.Warn("failed to enqueue maintenance job", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *RefreshScheduler) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeStatusRefresh:
		updated, err := s.students.RefreshStatuses(ctx)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordRefreshRun("failure")
			}
			return err
		}
		if s.metrics != nil {
			s.metrics.RecordRefreshRun("success")
		}
		s.logger.Info("scheduled status refresh completed", zap.Int("updated", updated))
		return nil
	case jobTypeReportsCleanup:
		_, err := s.reports.Cleanup(s.config.ReportTTL)
		return err
	default:
		s.logger.Warn("unknown maintenance job", zap.String("type", job.Type))
		return nil
	}
}
